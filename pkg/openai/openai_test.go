package openai

import "testing"

func TestNewDefaults(t *testing.T) {
	c := New(&Config{Token: "test"})
	if c.model != "gpt-4o-mini" {
		t.Errorf("model = %q; want %q", c.model, "gpt-4o-mini")
	}
	if c.imageModel != "dall-e-3" {
		t.Errorf("imageModel = %q; want %q", c.imageModel, "dall-e-3")
	}
}

func TestNewOverrides(t *testing.T) {
	c := New(&Config{Token: "test", Model: "gpt-4", ImageModel: "dall-e-2"})
	if c.model != "gpt-4" {
		t.Errorf("model = %q; want %q", c.model, "gpt-4")
	}
	if c.imageModel != "dall-e-2" {
		t.Errorf("imageModel = %q; want %q", c.imageModel, "dall-e-2")
	}
}
