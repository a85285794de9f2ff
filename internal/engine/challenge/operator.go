package challenge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Operator is a human who can clear a challenge out-of-band, for example by
// solving it in the visible browser window.
type Operator interface {
	// Resolve blocks until the operator answers. It reports whether the
	// pipeline should resume.
	Resolve(ctx context.Context, url string) (bool, error)
}

// OperatorFunc adapts a function to Operator.
type OperatorFunc func(ctx context.Context, url string) (bool, error)

// Resolve implements Operator.
func (f OperatorFunc) Resolve(ctx context.Context, url string) (bool, error) { return f(ctx, url) }

// ConsoleOperator prompts on a terminal. Enter resumes; "q" or "quit"
// declines. End of input counts as declining.
type ConsoleOperator struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	lines  chan readResult
	reader sync.Once
}

type readResult struct {
	line string
	err  error
}

// NewConsoleOperator returns an operator reading answers from in and writing
// prompts to out.
func NewConsoleOperator(in io.Reader, out io.Writer) *ConsoleOperator {
	return &ConsoleOperator{in: bufio.NewReader(in), out: out, lines: make(chan readResult)}
}

// Resolve implements Operator.
func (c *ConsoleOperator) Resolve(ctx context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\nThe page keeps showing a verification challenge:\n  %s\n", url)
	fmt.Fprint(c.out, "Solve it in the browser window, then press Enter to continue (q to abort): ")

	// One reader goroutine for the operator's lifetime so a cancelled prompt
	// does not leave a second reader racing for the next line.
	c.reader.Do(func() {
		go func() {
			for {
				line, err := c.in.ReadString('\n')
				c.lines <- readResult{line: line, err: err}
				if err != nil {
					close(c.lines)
					return
				}
			}
		}()
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r, ok := <-c.lines:
		if !ok {
			return false, nil
		}
		answer := strings.ToLower(strings.TrimSpace(r.line))
		if r.err != nil && answer == "" {
			if r.err == io.EOF {
				return false, nil
			}
			return false, r.err
		}
		return answer != "q" && answer != "quit", nil
	}
}
