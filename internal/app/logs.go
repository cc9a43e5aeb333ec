package app

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ansiRegex is a compiled regex for ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// streamLogs copies the container's multiplexed log stream to w, one
// cleaned line at a time, so the CI console shows build output as it
// arrives.
func streamLogs(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := cleanLogLine(scanner.Text()); line != "" {
			fmt.Fprintln(w, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading container output: %w", err)
	}
	return nil
}

// cleanLogLine removes Docker log frame headers, ANSI escape sequences,
// and lines that are mostly binary noise.
func cleanLogLine(line string) string {
	if len(line) == 0 {
		return ""
	}

	// Docker log frames carry an 8-byte header: [STREAM_TYPE][0][0][0][SIZE]
	if len(line) >= 8 {
		if line[0] == 1 || line[0] == 2 { // stdout or stderr stream type
			if len(line) > 8 {
				line = line[8:]
			} else {
				return ""
			}
		}
	}

	line = ansiRegex.ReplaceAllString(line, "")

	line = strings.ReplaceAll(line, "\x00", "")
	line = strings.ReplaceAll(line, "\x01", "")
	line = strings.ReplaceAll(line, "\x02", "")
	line = strings.ReplaceAll(line, "\x03", "")

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return ""
	}

	printableChars := 0
	for _, r := range line {
		if r >= 32 && r <= 126 {
			printableChars++
		}
	}

	// If less than 50% printable characters, skip the line
	if float64(printableChars)/float64(len(line)) < 0.5 {
		return ""
	}

	return line
}
