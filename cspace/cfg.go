// Package cspace defines configurations, the factory that owns them, and the capabilities the
// planners consume to sample, accept, connect and score configurations.
package cspace

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Unset is the energy of a configuration whose energy has not been evaluated yet.
var Unset = math.Inf(1)

// unsetToken is the textual form of Unset.
const unsetToken = "inf"

// Cfg is a point in configuration space: a fixed-length vector of values plus a lazily
// evaluated energy. Cfgs are created, copied and released through a Factory.
type Cfg struct {
	values []float64
	energy float64
}

// Dim returns the number of values.
func (c *Cfg) Dim() int {
	return len(c.values)
}

// Values returns the values of the configuration. The slice must not be modified; use Set or
// SetValues so that the energy is invalidated.
func (c *Cfg) Values() []float64 {
	return c.values
}

// At returns the i-th value.
func (c *Cfg) At(i int) float64 {
	return c.values[i]
}

// Set changes the i-th value and marks the energy as unset.
func (c *Cfg) Set(i int, v float64) {
	c.values[i] = v
	c.energy = Unset
}

// SetValues copies vals into the configuration and marks the energy as unset.
func (c *Cfg) SetValues(vals []float64) {
	copy(c.values, vals)
	c.energy = Unset
}

// Energy returns the energy, or Unset.
func (c *Cfg) Energy() float64 {
	return c.energy
}

// SetEnergy records the evaluated energy.
func (c *Cfg) SetEnergy(e float64) {
	c.energy = e
}

// HasEnergy reports whether the energy has been evaluated.
func (c *Cfg) HasEnergy() bool {
	return !math.IsInf(c.energy, 1)
}

// Factory is the only creator of configurations of a given dimension. It is safe for
// concurrent use.
type Factory struct {
	dim  int
	pool sync.Pool
}

// NewFactory returns a factory of configurations with dim values each.
func NewFactory(dim int) (*Factory, error) {
	if dim <= 0 {
		return nil, NewPreconditionError("NewFactory", "dimension must be positive, got "+strconv.Itoa(dim))
	}
	f := &Factory{dim: dim}
	f.pool.New = func() interface{} {
		buf := make([]float64, dim)
		return &buf
	}
	return f, nil
}

// Dim returns the dimension of the configurations made by this factory.
func (f *Factory) Dim() int {
	return f.dim
}

// New returns a zero-valued configuration with unset energy.
func (f *Factory) New() *Cfg {
	buf := *(f.pool.Get().(*[]float64))
	for i := range buf {
		buf[i] = 0
	}
	return &Cfg{values: buf, energy: Unset}
}

// Copy returns a deep copy of src, energy included.
func (f *Factory) Copy(src *Cfg) *Cfg {
	c := f.New()
	copy(c.values, src.values)
	c.energy = src.energy
	return c
}

// CopyInto overwrites dst with the values and energy of src.
func (f *Factory) CopyInto(dst, src *Cfg) {
	copy(dst.values, src.values)
	dst.energy = src.energy
}

// FromValues returns a configuration holding vals.
func (f *Factory) FromValues(vals ...float64) (*Cfg, error) {
	if len(vals) != f.dim {
		return nil, NewDimensionMismatchError(f.dim, len(vals))
	}
	c := f.New()
	copy(c.values, vals)
	return c, nil
}

// Delete releases c. It must not be used afterwards.
func (f *Factory) Delete(c *Cfg) {
	if c == nil || c.values == nil {
		return
	}
	buf := c.values
	c.values = nil
	f.pool.Put(&buf)
}

// Print writes the values of c followed by its energy, separated by single spaces. Unset
// energies are written as "inf". Values are written with the shortest representation that
// parses back to the same float64.
func (f *Factory) Print(w io.Writer, c *Cfg) error {
	var sb strings.Builder
	for _, v := range c.values {
		sb.WriteString(FormatFloat(v))
		sb.WriteByte(' ')
	}
	sb.WriteString(FormatFloat(c.energy))
	_, err := io.WriteString(w, sb.String())
	return err
}

// Read reads a configuration printed by Print from tr.
func (f *Factory) Read(tr *TokenReader) (*Cfg, error) {
	c := f.New()
	for i := 0; i < f.dim; i++ {
		v, err := tr.Float()
		if err != nil {
			f.Delete(c)
			return nil, errors.Wrapf(err, "reading value %d of %d", i, f.dim)
		}
		c.values[i] = v
	}
	e, err := tr.Float()
	if err != nil {
		f.Delete(c)
		return nil, errors.Wrap(err, "reading energy")
	}
	if math.IsInf(e, 1) {
		e = Unset
	}
	c.energy = e
	return c, nil
}

// Parse is Read over a string.
func (f *Factory) Parse(s string) (*Cfg, error) {
	return f.Read(NewTokenReader(strings.NewReader(s)))
}

// FormatFloat formats v the way Print does, writing +Inf as "inf".
func FormatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return unsetToken
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// TokenReader reads whitespace separated tokens.
type TokenReader struct {
	sc    *bufio.Scanner
	count int
}

// NewTokenReader returns a TokenReader over r.
func NewTokenReader(r io.Reader) *TokenReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	return &TokenReader{sc: sc}
}

// Token returns the next token, or io.ErrUnexpectedEOF when the input is exhausted.
func (tr *TokenReader) Token() (string, error) {
	if !tr.sc.Scan() {
		if err := tr.sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	tr.count++
	return tr.sc.Text(), nil
}

// Float reads the next token as a float64. "inf" and "+Inf" are accepted.
func (tr *TokenReader) Float() (float64, error) {
	tok, err := tr.Token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "token %d", tr.count)
	}
	return v, nil
}

// Int reads the next token as an int.
func (tr *TokenReader) Int() (int, error) {
	tok, err := tr.Token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "token %d", tr.count)
	}
	return v, nil
}
