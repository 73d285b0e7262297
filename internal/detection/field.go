package detection

import (
	"fmt"
	"strings"
)

// InputField is one <input>, <textarea> or <select> element with every
// attribute the page declared. Pointer and nil members mean the attribute was
// absent in the markup.
type InputField struct {
	TagName     string   `json:"tag_name" yaml:"tag_name"`
	InputType   *string  `json:"input_type,omitempty" yaml:"input_type,omitempty"`
	Name        *string  `json:"name,omitempty" yaml:"name,omitempty"`
	ID          *string  `json:"id,omitempty" yaml:"id,omitempty"`
	Classes     []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	CSSSelector *string  `json:"css_selector,omitempty" yaml:"css_selector,omitempty"`
	OuterHTML   *string  `json:"outer_html,omitempty" yaml:"outer_html,omitempty"`
	InnerHTML   *string  `json:"inner_html,omitempty" yaml:"inner_html,omitempty"`

	Value       *string `json:"value,omitempty" yaml:"value,omitempty"`
	Placeholder *string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Title       *string `json:"title,omitempty" yaml:"title,omitempty"`

	Required  *bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Readonly  *bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Disabled  *bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	MaxLength *uint64 `json:"maxlength,omitempty" yaml:"maxlength,omitempty"`
	MinLength *uint64 `json:"minlength,omitempty" yaml:"minlength,omitempty"`
	Pattern   *string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Step      *string `json:"step,omitempty" yaml:"step,omitempty"`
	Min       *string `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *string `json:"max,omitempty" yaml:"max,omitempty"`

	Autocomplete *string           `json:"autocomplete,omitempty" yaml:"autocomplete,omitempty"`
	InputMode    *string           `json:"inputmode,omitempty" yaml:"inputmode,omitempty"`
	Spellcheck   *bool             `json:"spellcheck,omitempty" yaml:"spellcheck,omitempty"`
	Aria         map[string]string `json:"aria,omitempty" yaml:"aria,omitempty"`

	DataAttributes map[string]string `json:"data_attributes,omitempty" yaml:"data_attributes,omitempty"`
	// Attributes holds every attribute on the element, including the ones
	// copied into dedicated members above.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Multiple *bool    `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Accept   *string  `json:"accept,omitempty" yaml:"accept,omitempty"`
	IsHidden *bool    `json:"is_hidden,omitempty" yaml:"is_hidden,omitempty"`

	FormAction *string `json:"form_action,omitempty" yaml:"form_action,omitempty"`
	FormMethod *string `json:"form_method,omitempty" yaml:"form_method,omitempty"`
	FormID     *string `json:"form_id,omitempty" yaml:"form_id,omitempty"`
	Enctype    *string `json:"enctype,omitempty" yaml:"enctype,omitempty"`

	ProbableSecret  bool     `json:"probable_secret" yaml:"probable_secret"`
	SecretEntropy   *float64 `json:"secret_entropy,omitempty" yaml:"secret_entropy,omitempty"`
	LikelyCSRFToken bool     `json:"likely_csrf_token,omitempty" yaml:"likely_csrf_token,omitempty"`
	Notes           []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Attr returns the captured value of a raw attribute.
func (f *InputField) Attr(key string) (string, bool) {
	v, ok := f.Attributes[strings.ToLower(key)]
	return v, ok
}

func (f InputField) String() string {
	return fmt.Sprintf("<%s name=%s id=%s type=%s sensitive=%t>",
		f.TagName, quoteOpt(f.Name), quoteOpt(f.ID), quoteOpt(f.InputType), f.ProbableSecret)
}

func quoteOpt(s *string) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%q", *s)
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
