package prompt

import (
	"github.com/manifoldco/promptui"
)

// SelectString asks the user to pick one of items with the arrow keys.
func SelectString(label string, items []string) (string, error) {
	s := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	_, choice, err := s.Run()
	return choice, normalize(err)
}
