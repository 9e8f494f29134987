// Package exposition renders metric snapshots in the Prometheus text format.
//
// The renderer only formats. Label arity, kind and monotonicity are the
// registry's job.
package exposition

import (
	"bytes"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the media type of the text exposition format.
const ContentType = "text/plain; version=" + expfmt.TextVersion + "; charset=utf-8"

// Write renders families to w in the given order.
func Write(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("render %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Render renders families into a new buffer.
func Render(families []*dto.MetricFamily) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, families); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderGatherer gathers from g and renders the result.
func RenderGatherer(g prometheus.Gatherer) ([]byte, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	return Render(families)
}
