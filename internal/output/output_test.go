package output

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputMirrorsIntoSpool(t *testing.T) {
	var term, spool bytes.Buffer
	out := New(&term)
	out.SetSpool(&spool)

	out.Output("x")
	out.Output("y")

	assert.Equal(t, "x\ny\n", spool.String())
	assert.Equal(t, "x\ny\n", ansi.Strip(term.String()))
}

func TestSpoolReceivesStrippedText(t *testing.T) {
	var term, spool bytes.Buffer
	out := New(&term)
	out.SetSpool(&spool)

	out.Print("\x1b[1mbold\x1b[0m plain")

	assert.Equal(t, "bold plain", spool.String())
	assert.Contains(t, term.String(), "\x1b[1m")
}

func TestMirrorSkipsTerminal(t *testing.T) {
	var term, spool bytes.Buffer
	out := New(&term)
	out.SetSpool(&spool)

	out.Mirror("typed input\n")

	assert.Empty(t, term.String())
	assert.Equal(t, "typed input\n", spool.String())
}

func TestLevelPrefixes(t *testing.T) {
	var term bytes.Buffer
	out := New(&term)

	out.Info("loaded")
	out.Warn("careful")
	out.Error("broken")
	out.Fatal("dead")

	want := "[+] loaded\n[!] careful\n[-] broken\n[-] dead\n"
	assert.Equal(t, want, ansi.Strip(term.String()))
}

func TestLineSeparatorIsEightyEquals(t *testing.T) {
	var term bytes.Buffer
	out := New(&term)
	out.LineSeparator()
	assert.Equal(t, strings.Repeat("=", 80)+"\n", term.String())
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	var term, spool bytes.Buffer
	out := New(&term)
	out.SetSpool(&spool)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(letter byte) {
			defer wg.Done()
			out.Output(strings.Repeat(string(letter), 300))
		}(byte('a' + i%26))
	}
	wg.Wait()

	for _, buf := range []*bytes.Buffer{&term, &spool} {
		lines := strings.Split(strings.TrimSuffix(ansi.Strip(buf.String()), "\n"), "\n")
		require.Len(t, lines, 40)
		for _, line := range lines {
			require.Len(t, line, 300)
			assert.Equal(t, strings.Repeat(line[:1], 300), line)
		}
	}
}

func TestTaskReportsDone(t *testing.T) {
	var term bytes.Buffer
	out := New(&term)

	err := out.Task("Loading...", false, func() error { return nil })

	require.NoError(t, err)
	assert.Equal(t, "[+] Loading... done\n", ansi.Strip(term.String()))
}

func TestTaskReportsFailure(t *testing.T) {
	var term bytes.Buffer
	exited := -1
	out := New(&term, WithExit(func(code int) { exited = code }))

	err := out.Task("Loading...", false, func() error { return errors.New("boom") })

	require.Error(t, err)
	assert.Equal(t, "[+] Loading... failed\n[-] Error: boom\n", ansi.Strip(term.String()))
	assert.Equal(t, -1, exited)
}

func TestTaskRecoversPanicAndExitsWhenFatal(t *testing.T) {
	var term bytes.Buffer
	exited := -1
	out := New(&term, WithExit(func(code int) { exited = code }))

	err := out.Task("Preparing database...", true, func() error { panic("kaboom") })

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, 1, exited)
	assert.Contains(t, ansi.Strip(term.String()), "[-] panic: kaboom")
}

func TestErrorKind(t *testing.T) {
	pathErr := &fs.PathError{Op: "open", Path: "/nope", Err: fs.ErrNotExist}
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("x"), "Error"},
		{"wrapped path error", fmt.Errorf("read config: %w", pathErr), "PathError"},
		{"panic", &PanicError{Value: "x"}, "panic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorKind(tc.err))
		})
	}
}
