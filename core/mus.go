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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the types that cross a storage boundary. Hand-written
// rather than generated; the layouts are small and stable, and every change
// here must stay backward compatible with data already on disk.

// IDMUS serializes ID values in the MUS format.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// QAMUS serializes QA values in the MUS format.
var QAMUS = qaMUS{}

type qaMUS struct{}

func (qaMUS) Marshal(qa QA, bs []byte) int {
	n := ord.String.Marshal(qa.Question, bs)
	n += ord.String.Marshal(qa.Answer, bs[n:])
	return n
}

func (qaMUS) Unmarshal(bs []byte) (QA, int, error) {
	var qa QA
	question, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return qa, n, err
	}
	qa.Question = question
	answer, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return qa, n, err
	}
	qa.Answer = answer
	return qa, n, nil
}

func (qaMUS) Size(qa QA) int {
	return ord.String.Size(qa.Question) + ord.String.Size(qa.Answer)
}

// PrecedentMUS serializes Precedent values in the MUS format. CreatedAt is
// stored as Unix nanoseconds.
var PrecedentMUS = precedentMUS{}

type precedentMUS struct{}

func (precedentMUS) Marshal(p Precedent, bs []byte) int {
	n := IDMUS.Marshal(p.Id, bs)
	n += ord.String.Marshal(p.ProductDescription, bs[n:])
	n += ord.String.Marshal(p.Code, bs[n:])
	n += ord.String.Marshal(p.CodeDescription, bs[n:])
	n += varint.Float32.Marshal(p.Score, bs[n:])
	n += varint.Int.Marshal(p.Iterations, bs[n:])
	n += varint.Int.Marshal(len(p.QAHistory), bs[n:])
	for _, qa := range p.QAHistory {
		n += QAMUS.Marshal(qa, bs[n:])
	}
	n += varint.Int64.Marshal(p.CreatedAt.UnixNano(), bs[n:])
	return n
}

func (precedentMUS) Unmarshal(bs []byte) (Precedent, int, error) {
	var p Precedent

	id, n, err := IDMUS.Unmarshal(bs)
	if err != nil {
		return p, n, err
	}
	p.Id = id

	var n1 int
	p.ProductDescription, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}

	p.Code, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}

	p.CodeDescription, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}

	p.Score, n1, err = varint.Float32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}

	p.Iterations, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}

	count, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	if count > 0 {
		p.QAHistory = make([]QA, 0, count)
		for i := 0; i < count; i++ {
			qa, n2, err := QAMUS.Unmarshal(bs[n:])
			n += n2
			if err != nil {
				return p, n, err
			}
			p.QAHistory = append(p.QAHistory, qa)
		}
	}

	nanos, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.CreatedAt = time.Unix(0, nanos).UTC()

	return p, n, nil
}

func (precedentMUS) Size(p Precedent) int {
	size := IDMUS.Size(p.Id)
	size += ord.String.Size(p.ProductDescription)
	size += ord.String.Size(p.Code)
	size += ord.String.Size(p.CodeDescription)
	size += varint.Float32.Size(p.Score)
	size += varint.Int.Size(p.Iterations)
	size += varint.Int.Size(len(p.QAHistory))
	for _, qa := range p.QAHistory {
		size += QAMUS.Size(qa)
	}
	size += varint.Int64.Size(p.CreatedAt.UnixNano())
	return size
}
