package files

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

const (
	magicELF   = 0x7f454c46
	magicClass = 0xcafebabe
)

// IsBinary reports whether path starts with an ELF or Java class magic number.
func IsBinary(path string) bool {
	head, err := ReadHead(path, 4)
	if err != nil || len(head) < 4 {
		return false
	}
	switch binary.BigEndian.Uint32(head) {
	case magicELF, magicClass:
		return true
	}
	return false
}

// IsScript reports whether path is an executable file starting with #!.
func IsScript(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() || fi.Mode().Perm()&0o111 == 0 {
		return false
	}
	head, err := ReadHead(path, 2)
	return err == nil && bytes.Equal(head, []byte("#!"))
}

// ReadHead returns at most n leading bytes of the file.
func ReadHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	k, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:k], nil
}
