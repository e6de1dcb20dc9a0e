package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
	}{
		{"query with table", "listings", DBOperationQuery},
		{"update with table", "listings", DBOperationUpdate},
		{"exec with table", "migrations", DBOperationExec},
		{"query without table", "", DBOperationQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spanRecorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
			otel.SetTracerProvider(tp)
			defer tp.Shutdown(context.Background())

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			spans := spanRecorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}

			span := spans[0]

			expectedName := string(tt.operation)
			if tt.table != "" {
				expectedName = expectedName + " " + tt.table
			}
			if span.Name() != expectedName {
				t.Errorf("expected span name %q, got %q", expectedName, span.Name())
			}

			hasDBSystem := false
			hasDBTable := false
			for _, attr := range span.Attributes() {
				switch attr.Key {
				case "db.system":
					hasDBSystem = true
					if attr.Value.AsString() != "postgresql" {
						t.Errorf("expected db.system=postgresql, got %s", attr.Value.AsString())
					}
				case "db.sql.table":
					hasDBTable = true
					if attr.Value.AsString() != tt.table {
						t.Errorf("expected db.sql.table=%s, got %s", tt.table, attr.Value.AsString())
					}
				}
			}

			if !hasDBSystem {
				t.Error("expected db.system attribute")
			}
			if tt.table != "" && !hasDBTable {
				t.Error("expected db.sql.table attribute")
			}
		})
	}
}

func TestStartDBSpan_RecordsError(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	_, endSpan := StartDBSpan(context.Background(), "listings", DBOperationUpdate)
	endSpan(errors.New("connection refused"))

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	events := spans[0].Events()
	found := false
	for _, ev := range events {
		if ev.Name == "exception" {
			found = true
		}
	}
	if !found {
		t.Error("expected error to be recorded as an exception event")
	}
}

func TestStartSpan(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	_, endSpan := StartSpan(context.Background(), "search_pipeline")
	endSpan(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "search_pipeline" {
		t.Errorf("expected span name search_pipeline, got %q", spans[0].Name())
	}
}
