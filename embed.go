package drawingliar

import (
	_ "embed"
)

// Default keyword list, overridable with game.keywordsFile
//
//go:embed static/keywords.yaml
var KeywordsYAML []byte
