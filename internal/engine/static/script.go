package static

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
	// pixels per element when estimating document height
	elementHeight = 24
)

// runScript evaluates script against a mock browser environment built from
// the current document. Only the surface the pipeline touches is modelled:
// scrolling, document queries, location and history.back.
func (s *Session) runScript(ctx context.Context, script string) (goja.Value, error) {
	vm := goja.New()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	global := vm.GlobalObject()
	_ = vm.Set("window", global)
	_ = vm.Set("self", global)
	_ = vm.Set("innerWidth", viewportWidth)
	_ = vm.Set("innerHeight", viewportHeight)
	_ = vm.Set("scrollX", 0)
	_ = vm.Set("scrollY", s.scrollY)
	_ = vm.Set("pageYOffset", s.scrollY)

	scrollTo := func(call goja.FunctionCall) goja.Value {
		y := argFloat(call.Argument(1))
		if obj, ok := call.Argument(0).Export().(map[string]interface{}); ok {
			if top, ok := obj["top"].(int64); ok {
				y = float64(top)
			} else if top, ok := obj["top"].(float64); ok {
				y = top
			}
		}
		s.setScroll(y)
		_ = vm.Set("scrollY", s.scrollY)
		_ = vm.Set("pageYOffset", s.scrollY)
		return goja.Undefined()
	}
	_ = vm.Set("scrollTo", scrollTo)
	_ = vm.Set("scroll", scrollTo)
	_ = vm.Set("scrollBy", func(call goja.FunctionCall) goja.Value {
		s.setScroll(s.scrollY + argFloat(call.Argument(1)))
		_ = vm.Set("scrollY", s.scrollY)
		_ = vm.Set("pageYOffset", s.scrollY)
		return goja.Undefined()
	})

	_ = vm.Set("location", map[string]interface{}{"href": s.url})
	_ = vm.Set("navigator", map[string]interface{}{
		"webdriver": false,
		"userAgent": "jobcrawl-replay",
		"languages": []string{"es-CR", "es", "en"},
	})
	_ = vm.Set("history", map[string]interface{}{
		"length": len(s.history),
		"back": func(goja.FunctionCall) goja.Value {
			if err := s.Back(ctx); err != nil {
				panic(vm.NewGoError(err))
			}
			return goja.Undefined()
		},
	})
	_ = vm.Set("console", map[string]interface{}{
		"log": func(call goja.FunctionCall) goja.Value {
			s.logger.Debug().Str("console", fmt.Sprint(exportArgs(call)...)).Msg("page script")
			return goja.Undefined()
		},
		"error": func(call goja.FunctionCall) goja.Value {
			s.logger.Debug().Str("console", fmt.Sprint(exportArgs(call)...)).Msg("page script error")
			return goja.Undefined()
		},
	})
	_ = vm.Set("document", s.documentObject())

	return vm.RunString(script)
}

func (s *Session) setScroll(y float64) {
	maxY := s.scrollHeight() - viewportHeight
	if y > maxY {
		y = maxY
	}
	if y < 0 {
		y = 0
	}
	s.scrollY = y
	s.scrolls = append(s.scrolls, y)
}

func (s *Session) scrollHeight() float64 {
	h := float64(countElements(s.root) * elementHeight)
	if h < viewportHeight {
		h = viewportHeight
	}
	return h
}

func (s *Session) documentObject() map[string]interface{} {
	title := ""
	if s.doc != nil {
		title = s.doc.Find("title").First().Text()
	}
	body := map[string]interface{}{
		"scrollHeight": s.scrollHeight(),
		"clientHeight": viewportHeight,
		"innerText":    visibleText(s.root),
	}
	return map[string]interface{}{
		"title":      title,
		"readyState": "complete",
		"body":       body,
		"documentElement": map[string]interface{}{
			"scrollHeight": s.scrollHeight(),
			"outerHTML":    s.html,
		},
		"location": map[string]interface{}{"href": s.url},
		"querySelector": func(sel string) interface{} {
			if s.doc == nil {
				return nil
			}
			found := s.doc.Find(sel).First()
			if found.Length() == 0 {
				return nil
			}
			return elementObject(found)
		},
		"querySelectorAll": func(sel string) []interface{} {
			var out []interface{}
			if s.doc == nil {
				return out
			}
			s.doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
				out = append(out, elementObject(el))
			})
			return out
		},
	}
}

func elementObject(el *goquery.Selection) map[string]interface{} {
	return map[string]interface{}{
		"tagName":     goquery.NodeName(el),
		"textContent": el.Text(),
		"innerText":   visibleText(el.Get(0)),
		"getAttribute": func(name string) interface{} {
			if v, ok := el.Attr(name); ok {
				return v
			}
			return nil
		},
	}
}

func argFloat(v goja.Value) float64 {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	f := v.ToFloat()
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func exportArgs(call goja.FunctionCall) []interface{} {
	out := make([]interface{}, len(call.Arguments))
	for i, a := range call.Arguments {
		out[i] = a.Export()
	}
	return out
}

// decodeResult copies a script result into out via JSON so callers can use
// the same typed targets for every Session implementation.
func decodeResult(v goja.Value, out any) error {
	if out == nil || v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	data, err := json.Marshal(v.Export())
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}
