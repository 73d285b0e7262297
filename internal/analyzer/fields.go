package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rachel/recon/internal/detection"
)

const fieldSelector = "input, textarea, select"

// ExtractFields builds one InputField per form control in document order.
// Fields are returned unscored; callers run detection.Evaluate over them.
func ExtractFields(doc *goquery.Document) []detection.InputField {
	var fields []detection.InputField
	doc.Find(fieldSelector).Each(func(_ int, sel *goquery.Selection) {
		fields = append(fields, buildField(doc, sel))
	})
	return fields
}

func buildField(doc *goquery.Document, sel *goquery.Selection) detection.InputField {
	tag := strings.ToLower(goquery.NodeName(sel))
	f := detection.InputField{TagName: tag}

	attrs := make(map[string]string)
	for _, a := range sel.Get(0).Attr {
		if a.Namespace != "" {
			continue
		}
		key := strings.ToLower(a.Key)
		attrs[key] = a.Val

		switch {
		case strings.HasPrefix(key, "aria-"):
			if f.Aria == nil {
				f.Aria = make(map[string]string)
			}
			f.Aria[strings.TrimPrefix(key, "aria-")] = a.Val
		case strings.HasPrefix(key, "data-"):
			if f.DataAttributes == nil {
				f.DataAttributes = make(map[string]string)
			}
			f.DataAttributes[strings.TrimPrefix(key, "data-")] = a.Val
		}
	}
	if len(attrs) > 0 {
		f.Attributes = attrs
	}

	f.InputType = optString(attrs, "type")
	f.Name = optString(attrs, "name")
	f.ID = optString(attrs, "id")
	if class, ok := attrs["class"]; ok {
		f.Classes = strings.Fields(class)
	}
	f.Value = optString(attrs, "value")
	f.Placeholder = optString(attrs, "placeholder")
	f.Title = optString(attrs, "title")

	f.Required = optPresence(attrs, "required")
	f.Readonly = optPresence(attrs, "readonly")
	f.Disabled = optPresence(attrs, "disabled")
	f.Multiple = optPresence(attrs, "multiple")
	f.MaxLength = optUint(attrs, "maxlength")
	f.MinLength = optUint(attrs, "minlength")
	f.Pattern = optString(attrs, "pattern")
	f.Step = optString(attrs, "step")
	f.Min = optString(attrs, "min")
	f.Max = optString(attrs, "max")

	f.Autocomplete = optString(attrs, "autocomplete")
	f.InputMode = optString(attrs, "inputmode")
	f.Spellcheck = optSpellcheck(attrs)
	f.Accept = optString(attrs, "accept")

	hidden := isHidden(attrs)
	f.IsHidden = &hidden
	f.CSSSelector = cssSelector(tag, attrs)

	if outer, err := goquery.OuterHtml(sel); err == nil {
		f.OuterHTML = &outer
	}
	if tag == "textarea" || tag == "select" {
		if inner, err := sel.Html(); err == nil {
			f.InnerHTML = &inner
		}
	}

	if tag == "select" {
		f.Options = selectOptions(sel)
	}

	applyFormContext(&f, doc, sel, attrs)
	return f
}

func selectOptions(sel *goquery.Selection) []string {
	options := []string{}
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		if v, ok := opt.Attr("value"); ok {
			options = append(options, v)
			return
		}
		options = append(options, strings.TrimSpace(opt.Text()))
	})
	return options
}

// applyFormContext copies action/method/id/enctype from the owning form: the
// one named by a form="..." attribute, otherwise the nearest enclosing form.
func applyFormContext(f *detection.InputField, doc *goquery.Document, sel *goquery.Selection, attrs map[string]string) {
	var form *goquery.Selection
	if owner, ok := attrs["form"]; ok && owner != "" {
		form = doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
			id, _ := s.Attr("id")
			return id == owner
		}).First()
	}
	if form == nil || form.Length() == 0 {
		form = sel.Closest("form")
	}
	if form.Length() == 0 {
		return
	}

	f.FormAction = selAttr(form, "action")
	f.FormMethod = selAttr(form, "method")
	f.FormID = selAttr(form, "id")
	f.Enctype = selAttr(form, "enctype")
}

func selAttr(sel *goquery.Selection, key string) *string {
	if v, ok := sel.Attr(key); ok {
		return &v
	}
	return nil
}

func optString(attrs map[string]string, key string) *string {
	if v, ok := attrs[key]; ok {
		return &v
	}
	return nil
}

// optPresence models HTML boolean attributes: present means true.
func optPresence(attrs map[string]string, key string) *bool {
	if _, ok := attrs[key]; ok {
		v := true
		return &v
	}
	return nil
}

func optUint(attrs map[string]string, key string) *uint64 {
	raw, ok := attrs[key]
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func optSpellcheck(attrs map[string]string) *bool {
	raw, ok := attrs["spellcheck"]
	if !ok {
		return nil
	}
	v := !strings.EqualFold(strings.TrimSpace(raw), "false")
	return &v
}

func isHidden(attrs map[string]string) bool {
	if strings.EqualFold(strings.TrimSpace(attrs["type"]), "hidden") {
		return true
	}
	if _, ok := attrs["hidden"]; ok {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(attrs["aria-hidden"]), "true")
}

func cssSelector(tag string, attrs map[string]string) *string {
	var s string
	switch {
	case attrs["id"] != "":
		s = fmt.Sprintf("%s[id=%q]", tag, attrs["id"])
	case attrs["name"] != "":
		s = fmt.Sprintf("%s[name=%q]", tag, attrs["name"])
	default:
		return nil
	}
	return &s
}
