package arbiter

import "strings"

// instructionSteps splits stored instructions into non-empty lines.
func instructionSteps(instructions string) []string {
	var steps []string
	for _, line := range strings.Split(instructions, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}
