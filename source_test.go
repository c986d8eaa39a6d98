package flowdoc_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/source/gojson"
)

func drain(src flowdoc.Source) ([]flowdoc.TokenKind, error) {
	var kinds []flowdoc.TokenKind
	for {
		tok, err := src.NextToken()
		if errors.Is(err, io.EOF) {
			return kinds, nil
		} else if err != nil {
			return kinds, err
		}
		kinds = append(kinds, tok.Kind)
	}
}

func TestEnforceSource(t *testing.T) {
	data := []byte(`{"a":1,"a":2}`)

	// No checks enabled.
	kinds, err := drain(flowdoc.EnforceSource(flowdoc.JSONBytes(data), flowdoc.ParseOpt{}))
	require.NoError(t, err)
	assert.Len(t, kinds, 6)

	_, err = drain(flowdoc.EnforceSource(flowdoc.JSONBytes(data), flowdoc.StrictParseOpt()))
	iss, ok := flowdoc.AsIssues(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, flowdoc.CodeDuplicateKey, iss[0].Code)
	assert.Equal(t, "/a", iss[0].Path)

	var warned []flowdoc.Issue
	_, err = drain(flowdoc.EnforceSource(flowdoc.JSONBytes(data), flowdoc.ParseOpt{
		OnDuplicateKey: flowdoc.DuplicateWarn,
		IssueSink:      func(is flowdoc.Issue) { warned = append(warned, is) },
	}))
	require.NoError(t, err)
	require.Len(t, warned, 1)
	assert.Equal(t, "/a", warned[0].Path)

	_, err = drain(flowdoc.EnforceSource(flowdoc.JSONBytes([]byte(`[[[1]]]`)), flowdoc.ParseOpt{MaxDepth: 2}))
	_, ok = flowdoc.AsIssues(err)
	assert.True(t, ok, "%v", err)
}

type countingDriver struct{ readers int }

func (d *countingDriver) NewReader(r io.Reader) flowdoc.Source {
	d.readers++
	return gojson.NewReader(r)
}

func (d *countingDriver) Name() string { return "counting" }

func TestJSONDriver(t *testing.T) {
	assert.Equal(t, "go-json", flowdoc.CurrentJSONDriver().Name())

	d := &countingDriver{}
	flowdoc.SetJSONDriver(d)
	t.Cleanup(flowdoc.UseDefaultJSONDriver)
	flowdoc.SetJSONDriver(nil)
	assert.Equal(t, "counting", flowdoc.CurrentJSONDriver().Name())

	kinds, err := drain(flowdoc.JSONReader(strings.NewReader(`[true, null]`)))
	require.NoError(t, err)
	assert.Equal(t, []flowdoc.TokenKind{flowdoc.TokenBeginArray, flowdoc.TokenBool, flowdoc.TokenNull, flowdoc.TokenEndArray}, kinds)
	assert.Equal(t, 1, d.readers)
}
