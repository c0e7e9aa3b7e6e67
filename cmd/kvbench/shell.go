package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hhkbp2/kvbench"
)

var (
	regexCmd = regexp.MustCompile(`\s+`)
)

// Shell is an interactive client issuing single operations against one
// engine.
type Shell struct {
	engine kvbench.StorageEngine
	in     io.Reader
	out    io.Writer
}

func NewShell(engine kvbench.StorageEngine, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		engine: engine,
		in:     in,
		out:    out,
	}
}

func (s *Shell) println(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
	fmt.Fprintln(s.out)
}

func (s *Shell) Main() error {
	s.println("kvbench command line client")
	s.println(`Type "help" for command line help`)
	s.println("Connected to %s (%s).", s.engine.Name(), s.engine.Family())
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "help":
			s.help()
			continue
		case "quit":
			return nil
		}
		start := time.Now()
		s.execute(regexCmd.Split(line, -1))
		elapsed := kvbench.NanosecondToMicrosecond(time.Since(start).Nanoseconds())
		s.println("%.3f ms", kvbench.MicrosecondToMillisecond(elapsed))
	}
	return scanner.Err()
}

func (s *Shell) execute(parts []string) {
	length := len(parts)
	switch parts[0] {
	case "get":
		if length != 2 {
			s.println(`Error: syntax is "get key"`)
			return
		}
		v, found, err := s.engine.Get([]byte(parts[1]))
		switch {
		case err != nil:
			s.println("Error: %s", err)
		case !found:
			s.println("Not found")
		default:
			s.println("%s=%s", parts[1], v)
		}
	case "put":
		if length != 3 {
			s.println(`Error: syntax is "put key value"`)
			return
		}
		if err := s.engine.Put([]byte(parts[1]), []byte(parts[2])); err != nil {
			s.println("Error: %s", err)
			return
		}
		s.println("OK")
	case "scan":
		if length != 3 {
			s.println(`Error: syntax is "scan key count"`)
			return
		}
		count, err := strconv.Atoi(parts[2])
		if err != nil || count <= 0 {
			s.println("invalid count: %s", parts[2])
			return
		}
		kvs, err := s.engine.RangeScan([]byte(parts[1]), count)
		if err != nil {
			s.println("Error: %s", err)
			return
		}
		if len(kvs) == 0 {
			s.println("0 records")
			return
		}
		s.println("--------------------------------")
		for i, kv := range kvs {
			s.println("Record %d", i)
			s.println("%s=%s", kv.Key, kv.Value)
			s.println("--------------------------------")
		}
	case "flush":
		if err := s.engine.Flush(); err != nil {
			s.println("Error: %s", err)
			return
		}
		s.println("OK")
	case "stats":
		stats := s.engine.Statistics()
		amp := kvbench.EstimatorFor(s.engine.Family()).Estimate(stats)
		s.println("bytes written: %s", kvbench.FormatBytes(stats.BytesWritten))
		s.println("bytes read: %s", kvbench.FormatBytes(stats.BytesRead))
		s.println("compaction bytes written: %s", kvbench.FormatBytes(stats.CompactionBytesWritten))
		if stats.DiskSizeReported {
			s.println("disk size: %s", kvbench.FormatBytes(stats.DiskSizeBytes))
		}
		s.println("write amplification: %.2f", amp.Write)
		s.println("space amplification: %.2f (%s)", amp.Space, amp.Model)
	default:
		s.println(`Error: unknown command "%s"`, parts[0])
	}
}

func (s *Shell) help() {
	helpFormat := `Commands
  get key - Read a value
  put key value - Insert or overwrite a value
  scan key count - Scan count pairs starting at key
  flush - Persist buffered writes
  stats - Show the engine counters and amplification
  quit - Quit`
	s.println(helpFormat)
}
