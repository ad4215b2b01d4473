package lsp

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestJSONRPCFramingMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	open := []byte(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///p/page.orbit","text":"<img src=\"é.png\">"}}}`)
	shutdown := []byte(`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`)
	for _, msg := range [][]byte{open, shutdown} {
		if err := writeMessage(&buf, msg); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	for _, want := range [][]byte{open, shutdown} {
		got, err := readMessage(reader)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("message = %s, want %s", got, want)
		}
	}
}

func TestReadMessageHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{
			name:  "content type and lowercase length",
			input: "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\ncontent-length: 2\r\n\r\n{}",
			want:  "{}",
		},
		{
			name:    "missing length",
			input:   "Content-Type: x\r\n\r\n{}",
			wantErr: "missing Content-Length",
		},
		{
			name:    "bad length",
			input:   "Content-Length: two\r\n\r\n{}",
			wantErr: "invalid Content-Length",
		},
		{
			name:    "oversized",
			input:   "Content-Length: 999999999999\r\n\r\n",
			wantErr: "exceeds limit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readMessage(bufio.NewReader(strings.NewReader(tt.input)))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Fatalf("payload = %q", got)
			}
		})
	}
}
