package client

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// InputHandler manages user input for the game
type InputHandler struct {
	scanner *bufio.Scanner
	display *Display
}

// NewInputHandler creates a new input handler
func NewInputHandler(display *Display) *InputHandler {
	return &InputHandler{
		scanner: bufio.NewScanner(os.Stdin),
		display: display,
	}
}

// GetMenuChoice gets and validates menu choices
func (ih *InputHandler) GetMenuChoice(min, max int) int {
	for {
		fmt.Printf("Enter your choice (%d-%d): ", min, max)

		if !ih.scanner.Scan() {
			ih.display.PrintError("Failed to read input")
			continue
		}

		input := strings.TrimSpace(ih.scanner.Text())
		choice, err := strconv.Atoi(input)

		if err != nil {
			ih.display.PrintWarning("Please enter a valid number")
			continue
		}

		if choice < min || choice > max {
			ih.display.PrintWarning(fmt.Sprintf("Please enter a number between %d and %d", min, max))
			continue
		}

		return choice
	}
}

// GetUsername prompts for and validates username input
func (ih *InputHandler) GetUsername() string {
	for {
		fmt.Print("Enter your username (3-20 characters): ")

		if !ih.scanner.Scan() {
			ih.display.PrintError("Failed to read input")
			continue
		}

		username := strings.TrimSpace(ih.scanner.Text())

		if len(username) < 3 {
			ih.display.PrintWarning("Username must be at least 3 characters long")
			continue
		}

		if len(username) > 20 {
			ih.display.PrintWarning("Username must be no more than 20 characters long")
			continue
		}

		// Check for valid characters (alphanumeric and underscore)
		if !isValidUsername(username) {
			ih.display.PrintWarning("Username can only contain letters, numbers, and underscores")
			continue
		}

		return username
	}
}

// GetGameMode prompts until the user names a real game mode
func (ih *InputHandler) GetGameMode() string {
	for {
		fmt.Print("Enter game mode (classic/competitive): ")

		if !ih.scanner.Scan() {
			ih.display.PrintError("Failed to read input")
			continue
		}

		mode := strings.ToLower(strings.TrimSpace(ih.scanner.Text()))

		switch mode {
		case "classic", "competitive":
			return mode
		default:
			ih.display.PrintWarning("Game mode must be 'classic' or 'competitive'")
		}
	}
}

// GetConfirmation gets yes/no confirmation from user
func (ih *InputHandler) GetConfirmation(prompt string) bool {
	for {
		fmt.Printf("%s (y/n): ", prompt)

		if !ih.scanner.Scan() {
			ih.display.PrintError("Failed to read input")
			continue
		}

		input := strings.ToLower(strings.TrimSpace(ih.scanner.Text()))

		switch input {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		default:
			ih.display.PrintWarning("Please enter 'y' for yes or 'n' for no")
		}
	}
}

// WaitForEnter waits for user to press Enter
func (ih *InputHandler) WaitForEnter(message string) {
	if message == "" {
		message = "Press Enter to continue..."
	}

	fmt.Print(message)
	ih.scanner.Scan()
}

// GetStringInput gets general string input with validation
func (ih *InputHandler) GetStringInput(prompt string, minLength, maxLength int) string {
	for {
		fmt.Print(prompt)

		if !ih.scanner.Scan() {
			ih.display.PrintError("Failed to read input")
			continue
		}

		input := strings.TrimSpace(ih.scanner.Text())

		if len(input) < minLength {
			ih.display.PrintWarning(fmt.Sprintf("Input must be at least %d characters long", minLength))
			continue
		}

		if maxLength > 0 && len(input) > maxLength {
			ih.display.PrintWarning(fmt.Sprintf("Input must be no more than %d characters long", maxLength))
			continue
		}

		if strings.ContainsRune(input, '|') {
			ih.display.PrintWarning("Input must not contain the '|' character")
			continue
		}

		return input
	}
}

// GetIntegerInput gets and validates integer input within a range
func (ih *InputHandler) GetIntegerInput(prompt string, min, max int) int {
	for {
		fmt.Printf("%s (%d-%d): ", prompt, min, max)

		if !ih.scanner.Scan() {
			ih.display.PrintError("Failed to read input")
			continue
		}

		input := strings.TrimSpace(ih.scanner.Text())
		value, err := strconv.Atoi(input)

		if err != nil {
			ih.display.PrintWarning("Please enter a valid number")
			continue
		}

		if value < min || value > max {
			ih.display.PrintWarning(fmt.Sprintf("Please enter a number between %d and %d", min, max))
			continue
		}

		return value
	}
}

// ReadLine reads one raw line from the user. It reports ok=false when
// standard input is closed, which callers treat as a request to leave.
func (ih *InputHandler) ReadLine(prompt string) (string, bool) {
	fmt.Print(prompt)

	if !ih.scanner.Scan() {
		return "", false
	}

	return strings.TrimSpace(ih.scanner.Text()), true
}

// Helper functions

// isValidUsername checks if username contains only valid characters
func isValidUsername(username string) bool {
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}
