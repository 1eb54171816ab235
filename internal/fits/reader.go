package fits

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrTableNotFound is returned when no binary table matches the requested
// extension name.
var ErrTableNotFound = errors.New("fits: binary table not found")

// maxDataBytes bounds a single HDU so a corrupt NAXIS cannot exhaust memory.
const maxDataBytes = 1 << 30

// HDU is one header/data unit.
type HDU struct {
	Header Header
	Data   []byte
}

// IsBinTable reports whether the HDU is a BINTABLE extension.
func (h HDU) IsBinTable() bool {
	return strings.EqualFold(h.Header.String("XTENSION"), "BINTABLE")
}

// ReadAll decodes every HDU in r.
func ReadAll(r io.Reader) ([]HDU, error) {
	br := bufio.NewReader(r)
	var hdus []HDU
	for {
		header, err := readHeader(br)
		if errors.Is(err, io.EOF) {
			if len(hdus) == 0 {
				return nil, fmt.Errorf("fits: empty input")
			}
			return hdus, nil
		}
		if err != nil {
			return nil, err
		}
		if len(hdus) == 0 && header.String("SIMPLE") != "T" {
			return nil, fmt.Errorf("fits: primary header lacks SIMPLE = T")
		}
		size, err := dataSize(header)
		if err != nil {
			return nil, err
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, fmt.Errorf("fits: read data unit: %w", err)
		}
		if pad := padding(size); pad > 0 {
			if _, err := br.Discard(pad); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("fits: skip padding: %w", err)
			}
		}
		hdus = append(hdus, HDU{Header: header, Data: data})
	}
}

// ReadTable returns the first binary table whose EXTNAME matches extname
// (case-insensitive). An empty extname selects the first binary table.
func ReadTable(r io.Reader, extname string) (*Table, error) {
	hdus, err := ReadAll(r)
	if err != nil {
		return nil, err
	}
	for _, hdu := range hdus {
		if !hdu.IsBinTable() {
			continue
		}
		if extname != "" && !strings.EqualFold(hdu.Header.String("EXTNAME"), extname) {
			continue
		}
		return NewTable(hdu)
	}
	if extname == "" {
		return nil, ErrTableNotFound
	}
	return nil, fmt.Errorf("%w: %s", ErrTableNotFound, extname)
}

// ReadTableBytes is ReadTable over an in-memory file.
func ReadTableBytes(data []byte, extname string) (*Table, error) {
	return ReadTable(bytes.NewReader(data), extname)
}

func readHeader(br *bufio.Reader) (Header, error) {
	header := newHeader()
	block := make([]byte, blockSize)
	first := true
	for {
		if _, err := io.ReadFull(br, block); err != nil {
			if first && errors.Is(err, io.EOF) {
				return header, io.EOF
			}
			return header, fmt.Errorf("fits: read header block: %w", err)
		}
		first = false
		for off := 0; off < blockSize; off += cardSize {
			card := block[off : off+cardSize]
			if strings.TrimSpace(string(card[:8])) == "END" {
				return header, nil
			}
			if key, value, ok := parseCard(card); ok {
				header.set(key, value)
			}
		}
	}
}

func dataSize(h Header) (int, error) {
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	elements := 1
	for i := 1; i <= naxis; i++ {
		n, err := h.Int("NAXIS" + strconv.Itoa(i))
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("fits: negative NAXIS%d", i)
		}
		elements *= n
	}
	pcount, gcount := 0, 1
	if _, ok := h.Get("PCOUNT"); ok {
		if pcount, err = h.Int("PCOUNT"); err != nil {
			return 0, err
		}
	}
	if _, ok := h.Get("GCOUNT"); ok {
		if gcount, err = h.Int("GCOUNT"); err != nil {
			return 0, err
		}
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}
	size := bitpix / 8 * gcount * (pcount + elements)
	if size < 0 || size > maxDataBytes {
		return 0, fmt.Errorf("fits: data unit of %d bytes out of range", size)
	}
	return size, nil
}
