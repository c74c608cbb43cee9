package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/achilleasa/polaris-bake/asset"
	"github.com/achilleasa/polaris-bake/types"
	"golang.org/x/image/bmp"
)

func TestRgba8Texture(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 0, 255, 255})

	tex, err := New(mockImage(t, img))
	if err != nil {
		t.Fatal(err)
	}

	if tex.Width != 2 || tex.Height != 1 {
		t.Fatalf("expected tex dims to be 2x1; got %dx%d", tex.Width, tex.Height)
	}

	if tex.Format != Rgba8 {
		t.Fatalf("expected tex format to be %d; got %d", Rgba8, tex.Format)
	}

	expLen := 8
	if len(tex.Data) != expLen {
		t.Fatalf("expected tex data len to be %d; got %d", expLen, len(tex.Data))
	}

	if c := tex.Sample(types.XY(0.25, 0.5)); c != types.XYZ(1, 0, 0) {
		t.Fatalf("expected left texel to be red; got %v", c)
	}
	if c := tex.Sample(types.XY(1.75, 0.5)); c != types.XYZ(0, 0, 1) {
		t.Fatalf("expected wrapped right texel to be blue; got %v", c)
	}
}

func TestLuminanceTexture(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 255})

	tex, err := New(mockImage(t, img))
	if err != nil {
		t.Fatal(err)
	}

	if tex.Format != Luminance8 {
		t.Fatalf("expected tex format to be %d; got %d", Luminance8, tex.Format)
	}
	if c := tex.Sample(types.XY(0, 0)); c != types.XYZ(1, 1, 1) {
		t.Fatalf("expected white sample; got %v", c)
	}
}

func TestBmpTexture(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}

	tex, err := New(asset.NewResourceFromStream("texture.bmp", &buf))
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 3 || tex.Height != 2 {
		t.Fatalf("expected tex dims to be 3x2; got %dx%d", tex.Width, tex.Height)
	}
}

func TestStreamHttpTexture(t *testing.T) {
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/texture.png" {
			png.Encode(w, image.NewRGBA64(image.Rect(0, 0, 1, 1)))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	imgRes, err := asset.NewResource(server.URL+"/texture.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer imgRes.Close()

	tex, err := New(imgRes)
	if err != nil {
		t.Fatal(err)
	}

	if tex.Width != 1 || tex.Height != 1 {
		t.Fatalf("expected tex dims to be 1x1; got %dx%d", tex.Width, tex.Height)
	}
}

func TestInvalidTexture(t *testing.T) {
	_, err := New(asset.NewResourceFromStream("broken.png", bytes.NewReader([]byte("not an image"))))
	if err == nil {
		t.Fatal("expected a decode error")
	}
}

func mockImage(t *testing.T, img image.Image) *asset.Resource {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return asset.NewResourceFromStream("test.png", &buf)
}
