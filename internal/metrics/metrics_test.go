package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistersEveryMetric(t *testing.T) {
	m := New()

	m.ActiveCalls.Set(3)
	m.CallsTotal.WithLabelValues("normal").Inc()
	m.ClockStratum.Set(10)
	m.ClockSelectedSource.WithLabelValues("internal", "internal_oscillator").Set(1)
	m.JitterBufferDepth.Set(5)
	m.TranscoderPassthrough.Add(2)
	m.TranscoderTranscoded.Add(1)
	m.CDREmitterDropped.Add(0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Handler() status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"gateway_b2bua_active_calls 3",
		`gateway_b2bua_calls_total{disposition="normal"} 1`,
		"gateway_clock_selected_stratum 10",
		"gateway_rtp_jitter_buffer_depth 5",
		"gateway_codec_transcoder_passthrough_frames_total 2",
		"gateway_codec_transcoder_transcoded_frames_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\nfull output:\n%s", want, body)
		}
	}
}

func TestNewUsesPrivateRegistry(t *testing.T) {
	a := New()
	b := New()

	a.ActiveCalls.Set(7)
	b.ActiveCalls.Set(0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "gateway_b2bua_active_calls 7") {
		t.Errorf("registry b observed registry a's value; registries are not isolated")
	}
}
