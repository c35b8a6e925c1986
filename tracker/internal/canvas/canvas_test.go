package canvas

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ysmood/gson"

	"github.com/hazyhaar/xptrail/tracker/internal/browser/browsertest"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 0x58, G: 0xcc, B: 0x02, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCapture(t *testing.T) {
	uri := pngDataURI(t, 4, 3)
	fake := browsertest.NewSession(nil)
	var gotArgs []any
	fake.Script = func(script string, args ...any) (gson.JSON, error) {
		if script != Script {
			t.Errorf("script: got %q", script)
		}
		gotArgs = args
		return gson.New(uri), nil
	}
	el := &browsertest.Element{Sel: "#myCanvas"}

	snap, err := Capture(context.Background(), fake, el)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Width != 4 || snap.Height != 3 || snap.MIMEType != "image/png" {
		t.Errorf("snapshot: %+v", snap)
	}
	if !bytes.HasPrefix(snap.Bytes, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("bytes are not a PNG")
	}
	if len(gotArgs) != 1 || gotArgs[0] != el {
		t.Errorf("canvas handle not passed to the script: %v", gotArgs)
	}
}

func TestCapture_Failures(t *testing.T) {
	tests := []struct {
		name   string
		result gson.JSON
		err    error
	}{
		{"script error", gson.New(nil), errors.New("tainted canvas")},
		{"wrong preamble", gson.New("data:image/jpeg;base64,AAAA"), nil},
		{"bad base64", gson.New(dataURIPrefix + "!!!"), nil},
		{"not a png", gson.New(dataURIPrefix + base64.StdEncoding.EncodeToString([]byte("GIF89a"))), nil},
		{"null", gson.New(nil), nil},
	}
	for _, tt := range tests {
		fake := browsertest.NewSession(nil)
		fake.Script = func(string, ...any) (gson.JSON, error) { return tt.result, tt.err }

		snap, err := Capture(context.Background(), fake, &browsertest.Element{Sel: "#myCanvas"})
		var cce *CanvasCaptureError
		if snap != nil || !errors.As(err, &cce) {
			t.Errorf("%s: got %v, %v", tt.name, snap, err)
		}
	}
}

func TestCapture_NilElement(t *testing.T) {
	fake := browsertest.NewSession(nil)
	_, err := Capture(context.Background(), fake, nil)
	var cce *CanvasCaptureError
	if !errors.As(err, &cce) {
		t.Fatalf("got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Error("no script should run without an element")
	}
}
