package orbit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/dynmap/internal/dynamo"
)

// ErrMalformed indicates an orbit file that cannot be parsed.
var ErrMalformed = errors.New("orbit: malformed orbit data")

// Save writes one line per point, each coordinate as %.6e followed by two
// spaces. Nothing follows the last point's newline.
func (o *Orbit) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := o.write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// Append is Save plus one blank line, so several orbits can share a stream.
func (o *Orbit) Append(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := o.write(bw); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

func (o *Orbit) write(bw *bufio.Writer) error {
	buf := make([]byte, 0, 64)
	for _, p := range o.points {
		for j := 0; j < p.Len(); j++ {
			buf = strconv.AppendFloat(buf[:0], p.AtVec(j), 'e', 6, 64)
			buf = append(buf, ' ', ' ')
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes a single orbit to path, truncating it.
func SaveFile(path string, o *Orbit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := o.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AppendFile writes all orbits to path, each followed by a blank line.
func AppendFile(path string, orbits []*Orbit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, o := range orbits {
		if err := o.Append(f); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// Read parses one or more orbits separated by blank lines. All points of
// one orbit must have the same number of coordinates.
func Read(r io.Reader) ([][]dynamo.State, error) {
	var (
		orbits  [][]dynamo.State
		current []dynamo.State
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			if len(current) > 0 {
				orbits = append(orbits, current)
				current = nil
			}
			continue
		}

		p := make(dynamo.State, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			p[i] = v
		}
		if len(current) > 0 && len(current[0]) != len(p) {
			return nil, fmt.Errorf("%w: line %d has %d coordinates, expected %d", ErrMalformed, line, len(p), len(current[0]))
		}
		current = append(current, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(current) > 0 {
		orbits = append(orbits, current)
	}
	return orbits, nil
}

func ReadFile(path string) ([][]dynamo.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
