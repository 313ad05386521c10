package graph

import "context"

// Format is a plain description of a negotiated buffer format: media type,
// subtype, and the handful of numeric parameters actually needed to size
// shared buffers. It deliberately is not a generic pod/property value — the
// wire-level pod format used for arbitrary parameter negotiation is out of
// scope (see Non-goals); Format only carries what FixedIntersectNegotiator
// needs to pick a common format between two ports.
type Format struct {
	MediaType    string
	MediaSubtype string
	SampleRate   uint32
	Channels     uint32
}

// portFormats is implemented by whatever exposes the candidate formats a
// port supports, so FixedIntersectNegotiator doesn't need to know how a
// Backend stores them.
type portFormats interface {
	SupportedFormats(p *Port) []Format
}

// FixedIntersectNegotiator is a reference FormatNegotiator: it intersects
// the output and input ports' supported formats on media type/subtype,
// taking each matching pair's lower sample rate and lower channel count, and
// picks the candidate with the highest sample rate (the first one found on a
// tie). The chosen Format is not stored or reported: done receives only
// success or failure. It completes
// synchronously (calling done before Negotiate returns), which is
// sufficient for backends that already know their own capabilities
// up front; a backend needing a real handshake round-trip supplies its own
// FormatNegotiator instead.
type FixedIntersectNegotiator struct {
	Formats portFormats
}

// Negotiate implements FormatNegotiator.
func (n *FixedIntersectNegotiator) Negotiate(ctx context.Context, seq uint32, output, input *Port, done func(seq uint32, err error)) error {
	outFormats := n.Formats.SupportedFormats(output)
	inFormats := n.Formats.SupportedFormats(input)

	var best *Format
	for _, o := range outFormats {
		for _, i := range inFormats {
			if o.MediaType != i.MediaType || o.MediaSubtype != i.MediaSubtype {
				continue
			}
			rate := o.SampleRate
			if i.SampleRate < rate {
				rate = i.SampleRate
			}
			ch := o.Channels
			if i.Channels < ch {
				ch = i.Channels
			}
			cand := Format{MediaType: o.MediaType, MediaSubtype: o.MediaSubtype, SampleRate: rate, Channels: ch}
			if best == nil || cand.SampleRate > best.SampleRate {
				best = &cand
			}
		}
	}
	if best == nil {
		err := &InvalidError{Message: "no compatible format between ports"}
		done(seq, err)
		return nil
	}
	done(seq, nil)
	return nil
}
