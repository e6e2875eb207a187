// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

type Decoder interface {
	Decode(v any) error
}

type Encoder interface {
	Encode(v any) error
}

// A Codec marshals and unmarshals values through a pair of encoder and
// decoder constructors, such as those of encoding/json or encoding/gob.
//
// Durable managers use it to turn a whole PropertySet into the bytes handed
// to their Shelf:
//
//	m, err := propstore.NewDurable[string]("/var/lib/dav/props",
//	    propstore.WithCodec(propstore.NewCodec(gob.NewEncoder, gob.NewDecoder)))
//
// A durable Manager hands back whatever the Codec decodes, so values must
// survive a round trip through it unchanged. JSON decodes interface values
// into generic forms (numbers as float64, objects as map[string]any), hence
// NewDurable refuses an interface-typed V with the JSON codec. Use a
// concrete type, or a gob Codec with the dynamic types registered through
// gob.Register.
//
// The zero Codec uses JSON.
type Codec struct {
	newEncoder func(io.Writer) Encoder
	newDecoder func(io.Reader) Decoder

	// untyped is set when decoding into an interface loses the dynamic type.
	untyped bool
}

func NewCodec[E Encoder, D Decoder](newEncoder func(io.Writer) E, newDecoder func(io.Reader) D) Codec {
	return Codec{
		newEncoder: func(w io.Writer) Encoder { return newEncoder(w) },
		newDecoder: func(r io.Reader) Decoder { return newDecoder(r) },
	}
}

// JSONCodec encodes values with encoding/json.
var JSONCodec = func() Codec {
	c := NewCodec(json.NewEncoder, json.NewDecoder)
	c.untyped = true
	return c
}()

func (c Codec) orDefault() Codec {
	if c.newEncoder == nil || c.newDecoder == nil {
		return JSONCodec
	}
	return c
}

// Marshal encodes v into a new byte slice.
func (c Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.orDefault().newEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v.
func (c Codec) Unmarshal(data []byte, v any) error {
	return c.orDefault().newDecoder(bytes.NewReader(data)).Decode(v)
}

// loadFile reads the contents of the file at path and unmarshals it into v.
func loadFile(path string, codec Codec, v any) error {
	rdf, err := os.Open(path)
	if err != nil {
		return err
	}
	defer rdf.Close()

	return codec.orDefault().newDecoder(bufio.NewReader(rdf)).Decode(v)
}

// storeFile marshals v and writes the result into the specified path,
// overwriting its contents. This write is atomic: either all of the data has
// been written and flushed to stable storage, or none of it, in which case
// the destination remains untouched.
func storeFile(path string, mode os.FileMode, codec Codec, v any) (err error) {

	// Write the updated contents to an alternate file, then atomically
	// swap it with the original. This avoids corrupting the store should
	// the process terminate mid-write.

	wf, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			wf.Close()
			os.Remove(wf.Name())
		}
	}()

	if err := wf.Chmod(mode &^ os.ModeType); err != nil {
		return err
	}

	w := bufio.NewWriter(wf)
	if err := codec.orDefault().newEncoder(w).Encode(v); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := wf.Sync(); err != nil {
		return err
	}
	if err := wf.Close(); err != nil {
		return err
	}

	return os.Rename(wf.Name(), path)
}
