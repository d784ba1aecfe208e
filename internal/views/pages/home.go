package pages

import "fmt"

// HomeData fills the home page forms
type HomeData struct {
	RoomCode   string // pre-filled from an invite link
	PlayerName string
	Error      string
	CodeLength int
}

func (d HomeData) codeLength() int {
	if d.CodeLength <= 0 {
		return 4
	}
	return d.CodeLength
}

// codePattern is the browser-side room code check
func codePattern(n int) string {
	return fmt.Sprintf("[A-Za-z0-9]{%d}", n)
}
