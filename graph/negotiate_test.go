package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticFormats map[uint32][]Format

func (s staticFormats) SupportedFormats(p *Port) []Format { return s[p.ID()] }

func TestFixedIntersectNegotiatorPicksCommonFormat(t *testing.T) {
	core := NewCore()
	_, outPort := newTestNodeWithPort(t, core, DirectionOutput)
	_, inPort := newTestNodeWithPort(t, core, DirectionInput)

	formats := staticFormats{
		outPort.ID(): {{MediaType: "audio", MediaSubtype: "raw", SampleRate: 48000, Channels: 2}},
		inPort.ID():  {{MediaType: "audio", MediaSubtype: "raw", SampleRate: 44100, Channels: 2}},
	}
	neg := &FixedIntersectNegotiator{Formats: formats}

	var gotErr error
	err := neg.Negotiate(context.Background(), 1, outPort, inPort, func(seq uint32, e error) { gotErr = e })
	require.NoError(t, err)
	require.NoError(t, gotErr)
}

func TestFixedIntersectNegotiatorNoCommonFormat(t *testing.T) {
	core := NewCore()
	_, outPort := newTestNodeWithPort(t, core, DirectionOutput)
	_, inPort := newTestNodeWithPort(t, core, DirectionInput)

	formats := staticFormats{
		outPort.ID(): {{MediaType: "audio", MediaSubtype: "raw", SampleRate: 48000, Channels: 2}},
		inPort.ID():  {{MediaType: "video", MediaSubtype: "raw", SampleRate: 48000, Channels: 2}},
	}
	neg := &FixedIntersectNegotiator{Formats: formats}

	var gotErr error
	err := neg.Negotiate(context.Background(), 1, outPort, inPort, func(seq uint32, e error) { gotErr = e })
	require.NoError(t, err)
	require.Error(t, gotErr)
}
