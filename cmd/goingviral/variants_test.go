package main

import (
	"strings"
	"testing"

	"goingviral/pkg/scraper"
	"goingviral/pkg/ui"
)

func TestRenderVariants(t *testing.T) {
	ui.SetColor(false)
	out := renderVariants(scraper.DefaultVariants(), scraper.VariantData)

	for _, v := range scraper.DefaultVariants() {
		if !strings.Contains(out, v.Name) {
			t.Errorf("table missing variant %s", v.Name)
		}
	}
	if !strings.Contains(out, scraper.VariantData+" *") {
		t.Errorf("default variant not marked:\n%s", out)
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Error("unexpected yesNo output")
	}
}
