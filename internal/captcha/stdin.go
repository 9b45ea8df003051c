package captcha

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StdinSolver writes the challenge image next to the working directory,
// tells the operator where to find it, and blocks on stdin for the code.
type StdinSolver struct {
	// In and Out default to os.Stdin and os.Stderr.
	In  io.Reader
	Out io.Writer

	// Dir is where challenge images are written. Defaults to the current
	// directory so the operator can find them without digging through /tmp.
	Dir string
}

func (s *StdinSolver) Solve(_ context.Context, ch Challenge) (Solution, error) {
	in := s.In
	if in == nil {
		in = os.Stdin
	}
	out := s.Out
	if out == nil {
		out = os.Stderr
	}

	divider := strings.Repeat("=", 60)
	fmt.Fprintln(out, divider)
	fmt.Fprintln(out, "CAPTCHA REQUIRED")
	fmt.Fprintf(out, "Challenge ID: %s\n", ch.ID)

	var imagePath string
	if len(ch.Image) > 0 {
		path, err := s.writeImage(ch.Image)
		if err != nil {
			fmt.Fprintf(out, "Could not save the challenge image: %v\n", err)
		} else {
			imagePath = path
			fmt.Fprintf(out, "Challenge image saved to: %s\n", path)
			fmt.Fprintln(out, "Open the image and solve the captcha.")
		}
	} else {
		fmt.Fprintln(out, "No image payload; check the service response for challenge details.")
	}
	fmt.Fprintln(out, divider)
	fmt.Fprint(out, "Enter captcha code: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Solution{}, fmt.Errorf("read captcha code: %w", err)
		}
		return Solution{}, fmt.Errorf("read captcha code: input closed")
	}
	text := strings.TrimSpace(scanner.Text())

	if imagePath != "" {
		_ = os.Remove(imagePath)
	}
	return Solution{ID: ch.ID, Text: text}, nil
}

func (s *StdinSolver) writeImage(img []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("captcha_%d.%s", time.Now().Unix(), imageExt(img))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// imageExt picks a file extension from the image magic bytes.
func imageExt(img []byte) string {
	switch {
	case bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(img, []byte{0xFF, 0xD8, 0xFF}):
		return "jpg"
	default:
		return "png"
	}
}
