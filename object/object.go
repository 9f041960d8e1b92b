package object

import (
	"bytes"
	"fmt"
	"strconv"
)

type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeCommit ObjectType = "commit"
	TypeTree   ObjectType = "tree"
)

// Valid reports whether t is one of the kinds the store accepts.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit:
		return true
	}
	return false
}

type Object struct {
	Type ObjectType
	Data []byte
}

// Format fixes the digest and compression used by a repository. Every
// reader of a store must use the store's Format.
type Format struct {
	Hash  HashAlgo
	Codec Codec
}

// DefaultFormat is git-compatible: SHA-1 keys over zlib-compressed frames.
var DefaultFormat = Format{Hash: SHA1, Codec: Zlib}

// Frame returns the canonical encoding "<type> <len>\x00<data>" that is
// hashed to produce the key.
func Frame(obj *Object) []byte {
	header := fmt.Sprintf("%s %d\x00", obj.Type, len(obj.Data))
	content := make([]byte, 0, len(header)+len(obj.Data))
	content = append(content, header...)
	return append(content, obj.Data...)
}

// HashObject computes the key of obj without compressing it.
func (f Format) HashObject(obj *Object) (string, error) {
	if !obj.Type.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, obj.Type)
	}
	return f.Hash.Sum(Frame(obj)), nil
}

// Serialize frames, hashes and compresses obj.
func (f Format) Serialize(obj *Object) (compressed []byte, sha string, err error) {
	if !obj.Type.Valid() {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidKind, obj.Type)
	}
	content := Frame(obj)
	sha = f.Hash.Sum(content)

	compressed, err = f.Codec.Encode(content)
	if err != nil {
		return nil, "", err
	}
	return compressed, sha, nil
}

// Deserialize decompresses and parses a stored frame.
func (f Format) Deserialize(compressed []byte) (*Object, error) {
	content, err := f.Codec.Decode(compressed)
	if err != nil {
		return nil, err
	}
	return ParseFrame(content)
}

func Serialize(obj *Object) (compressed []byte, sha string, err error) {
	return DefaultFormat.Serialize(obj)
}

func Deserialize(compressed []byte) (*Object, error) {
	return DefaultFormat.Deserialize(compressed)
}

// ParseFrame splits an uncompressed frame at its first NUL and validates the
// header against the payload.
func ParseFrame(content []byte) (*Object, error) {
	nullIdx := bytes.IndexByte(content, 0)
	if nullIdx == -1 {
		return nil, fmt.Errorf("%w: no null byte", ErrCorrupt)
	}

	header := content[:nullIdx]
	data := content[nullIdx+1:]

	sp := bytes.IndexByte(header, ' ')
	if sp <= 0 || sp == len(header)-1 {
		return nil, fmt.Errorf("%w: invalid header %q", ErrCorrupt, header)
	}
	typ := ObjectType(header[:sp])
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrCorrupt, typ)
	}

	sizeField := header[sp+1:]
	for _, c := range sizeField {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: invalid size %q", ErrCorrupt, sizeField)
		}
	}
	size, err := strconv.Atoi(string(sizeField))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid size in header: %v", ErrCorrupt, err)
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: invalid data size: expected %d, got %d", ErrCorrupt, size, len(data))
	}

	return &Object{
		Type: typ,
		Data: data,
	}, nil
}
