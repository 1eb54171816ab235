package fits

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// Header holds the keyword cards of one HDU in file order.
type Header struct {
	keys   []string
	values map[string]string
}

func newHeader() Header {
	return Header{values: make(map[string]string)}
}

// Keys lists the keywords in the order they appeared.
func (h Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Get returns the raw value of key with string quotes removed.
func (h Header) Get(key string) (string, bool) {
	v, ok := h.values[strings.ToUpper(key)]
	return v, ok
}

// String returns the value of key or "" when it is absent.
func (h Header) String(key string) string {
	v, _ := h.Get(key)
	return v
}

// Int parses key as an integer.
func (h Header) Int(key string) (int, error) {
	raw, ok := h.Get(key)
	if !ok {
		return 0, fmt.Errorf("fits: missing keyword %s", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("fits: keyword %s=%q is not an integer", key, raw)
	}
	return n, nil
}

// Float parses key as a float; ok is false when the key is absent.
func (h Header) Float(key string) (float64, bool, error) {
	raw, ok := h.Get(key)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, "D", "E", 1), 64)
	if err != nil {
		return 0, true, fmt.Errorf("fits: keyword %s=%q is not a number", key, raw)
	}
	return v, true, nil
}

func (h *Header) set(key, value string) {
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// parseCard splits one 80-byte card. Cards without a value indicator
// (COMMENT, HISTORY, blank) report ok=false.
func parseCard(card []byte) (key, value string, ok bool) {
	key = strings.TrimSpace(string(card[:8]))
	if key == "" || len(card) < 10 || card[8] != '=' || card[9] != ' ' {
		return key, "", false
	}
	rest := strings.TrimLeft(string(card[10:]), " ")
	if strings.HasPrefix(rest, "'") {
		var sb strings.Builder
		for i := 1; i < len(rest); i++ {
			if rest[i] == '\'' {
				if i+1 < len(rest) && rest[i+1] == '\'' {
					sb.WriteByte('\'')
					i++
					continue
				}
				break
			}
			sb.WriteByte(rest[i])
		}
		return key, strings.TrimRight(sb.String(), " "), true
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return key, strings.TrimSpace(rest), true
}

func padding(n int) int {
	if r := n % blockSize; r != 0 {
		return blockSize - r
	}
	return 0
}
