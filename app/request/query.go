package request

// Query holds the name/value pairs of a query string. Only the last value of
// a repeated name is kept.
type Query map[string]string

func (q Query) Get(name string) (string, bool) {
	v, ok := q[name]
	return v, ok
}

type parseState uint8

const (
	parsingName parseState = iota
	parsingValue
)

type queryScanner struct {
	state parseState
	name  []byte
	value []byte
	out   Query
}

// step feeds one byte to the scanner.
func (s *queryScanner) step(c byte) {
	switch s.state {
	case parsingName:
		if c == '=' {
			s.state = parsingValue
			s.value = s.value[:0]
			return
		}
		s.name = append(s.name, c)
	case parsingValue:
		if c == '&' {
			s.commit()
			s.state = parsingName
			return
		}
		s.value = append(s.value, c)
	}
}

func (s *queryScanner) commit() {
	s.out[string(s.name)] = string(s.value)
	s.name = s.name[:0]
	s.value = s.value[:0]
}

// eof flushes the pair still pending in value state. A trailing name that
// never saw '=' is dropped.
func (s *queryScanner) eof() {
	if s.state == parsingValue {
		s.commit()
	}
}

// ParseQuery parses raw (without the leading '?') as name=value pairs joined
// by '&'. It never fails; malformed input yields whatever pairs completed.
// No percent-decoding is done.
func ParseQuery(raw string) Query {
	s := queryScanner{out: make(Query)}
	for i := 0; i < len(raw); i++ {
		s.step(raw[i])
	}
	s.eof()
	return s.out
}
