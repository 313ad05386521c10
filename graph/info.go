package graph

import "github.com/joeycumines/go-utilpkg/jsonenc"

// Info is the descriptive metadata attached to a Node, Port or Link:
// a name plus an open-ended property bag, mirroring the reference
// implementation's "props" dictionaries.
type Info struct {
	Name  string
	Props map[string]string
}

// MarshalCompact encodes Info as a compact JSON object using the example
// pack's streaming token encoder, rather than encoding/json, avoiding an
// intermediate map allocation on the hot "describe this node" path (e.g.
// responding to an introspection request while the graph is under load).
func (i Info) MarshalCompact() ([]byte, error) {
	var buf []byte
	enc := jsonenc.NewEncoder(&buf)
	enc.ObjectStart()
	enc.Key("name")
	enc.String(i.Name)
	enc.Key("props")
	enc.ObjectStart()
	for k, v := range i.Props {
		enc.Key(k)
		enc.String(v)
	}
	enc.ObjectEnd()
	enc.ObjectEnd()
	if err := enc.Err(); err != nil {
		return nil, &InvalidError{Message: "encode info", Cause: err}
	}
	return buf, nil
}
