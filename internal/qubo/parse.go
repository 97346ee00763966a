package qubo

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyError reports a coefficient-map key that could not be parsed into the
// expected coordinate arity. The registry must stay untouched when one is
// returned, so builders fail before any model is handed out.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("malformed coefficient key %q: %s", e.Key, e.Reason)
}

// ParseVar parses a single variable index, as used for Ising h-map keys.
// Surrounding whitespace is tolerated; anything else is a KeyError.
func ParseVar(key string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, &KeyError{Key: key, Reason: "not an integer variable index"}
	}
	return v, nil
}

// ParsePair parses a stringified coordinate pair like "(0,1)" into a
// normalized Pair. The parentheses are optional and whitespace around either
// coordinate is tolerated, since JSON clients tend to render tuples with a
// space after the comma. Exactly two integer coordinates are required: a key
// like "(0)" has the wrong arity and is rejected.
func ParsePair(key string) (Pair, error) {
	body := strings.TrimSpace(key)
	body = strings.TrimPrefix(body, "(")
	body = strings.TrimSuffix(body, ")")

	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return Pair{}, &KeyError{
			Key:    key,
			Reason: fmt.Sprintf("expected 2 coordinates, got %d", len(parts)),
		}
	}

	u, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Pair{}, &KeyError{Key: key, Reason: "first coordinate is not an integer"}
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Pair{}, &KeyError{Key: key, Reason: "second coordinate is not an integer"}
	}

	return NewPair(u, v), nil
}
