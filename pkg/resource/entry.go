// MIT License
//
// Copyright (c) 2023 kache.io
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package resource

import (
	"bytes"
	"encoding/gob"
	"time"
)

func init() {
	// Data holds arbitrary OEmbed JSON fields boxed as interface{}; gob
	// requires every concrete type that crosses an interface boundary to
	// be registered up front.
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register([]interface{}(nil))
	gob.Register(map[string]interface{}(nil))
}

// Entry is the gob-serialized form of a Resource, as stored in the KV
// backend. Kept separate from Resource so the wire format doesn't need to
// track every in-memory convenience the value object grows over time.
type Entry struct {
	URL       string
	Data      map[string]any
	CreatedAt time.Time
}

// Encode encodes a Resource into its serialized Entry form.
func Encode(r *Resource) ([]byte, error) {
	entry := Entry{URL: r.URL, Data: r.Data, CreatedAt: r.CreatedAt}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes a serialized Entry back into a Resource.
func Decode(data []byte) (*Resource, error) {
	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, err
	}
	return &Resource{URL: entry.URL, Data: entry.Data, CreatedAt: entry.CreatedAt}, nil
}
