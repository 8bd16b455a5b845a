// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/tariff/core"
)

// Fingerprint derives a stable digest from the embedding input texts. Any
// change to the taxonomy content or ordering yields a different digest, so
// a stale cache file is simply never found rather than detected.
func Fingerprint(texts []string) string {
	h, _ := blake2b.New(16, nil)
	for _, text := range texts {
		h.Write([]byte(text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheFileName returns the cache file name for a fingerprint.
func CacheFileName(fingerprint string) string {
	return fmt.Sprintf("tariff_embeddings_%s.bin", fingerprint)
}

// matrixMUS serializes the embedding matrix together with the fingerprint
// of the inputs it was computed from.
var matrixMUS = matrixSer{}

type matrixSer struct{}

type cachedMatrix struct {
	Fingerprint string
	Vectors     [][]float32
}

func (matrixSer) Marshal(m cachedMatrix, bs []byte) int {
	n := ord.String.Marshal(m.Fingerprint, bs)
	n += varint.Int.Marshal(len(m.Vectors), bs[n:])
	dim := 0
	if len(m.Vectors) > 0 {
		dim = len(m.Vectors[0])
	}
	n += varint.Int.Marshal(dim, bs[n:])
	for _, vec := range m.Vectors {
		for _, v := range vec {
			n += varint.Float32.Marshal(v, bs[n:])
		}
	}
	return n
}

func (matrixSer) Unmarshal(bs []byte) (cachedMatrix, int, error) {
	var m cachedMatrix

	fingerprint, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return m, n, err
	}
	m.Fingerprint = fingerprint

	count, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}

	dim, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}

	// The header comes from untrusted file bytes. Each float32 needs at
	// least one byte, so a shape larger than the remaining buffer cannot
	// be valid and must not reach make.
	rest := len(bs) - n
	if count < 0 || dim < 0 || count > rest || dim > rest {
		return m, n, ErrMalformedCache
	}
	if dim > 0 && count > rest/dim {
		return m, n, ErrMalformedCache
	}

	m.Vectors = make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			v, n2, err := varint.Float32.Unmarshal(bs[n:])
			n += n2
			if err != nil {
				return m, n, err
			}
			vec[j] = v
		}
		m.Vectors[i] = vec
	}

	return m, n, nil
}

func (matrixSer) Size(m cachedMatrix) int {
	size := ord.String.Size(m.Fingerprint)
	size += varint.Int.Size(len(m.Vectors))
	dim := 0
	if len(m.Vectors) > 0 {
		dim = len(m.Vectors[0])
	}
	size += varint.Int.Size(dim)
	for _, vec := range m.Vectors {
		for _, v := range vec {
			size += varint.Float32.Size(v)
		}
	}
	return size
}

// saveCache writes the matrix atomically: a temp file in the same directory
// is renamed over the final path, so readers never observe a half-written
// cache.
func saveCache(path string, m cachedMatrix) error {
	buf := make([]byte, matrixMUS.Size(m))
	matrixMUS.Marshal(m, buf)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tariff_embeddings_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// loadCache reads a cached matrix and verifies it against the expected
// fingerprint. A missing file or a fingerprint mismatch reports
// core.ErrCacheMiss; corrupt data reports the decode error.
func loadCache(path, fingerprint string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrCacheMiss
		}
		return nil, err
	}

	m, _, err := matrixMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt embedding cache %s: %w", path, err)
	}
	if m.Fingerprint != fingerprint {
		return nil, core.ErrCacheMiss
	}

	return m.Vectors, nil
}
