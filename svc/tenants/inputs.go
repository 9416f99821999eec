package tenants

import (
	"slices"
	"strings"

	"github.com/dmitrymomot/flagkit/pkg/slug"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/pkg/validator"
)

const (
	maxNameLength = 255
	maxSlugLength = 100
)

// CreateInput describes a new tenant. Nil quotas take the defaults and an
// empty slug is derived from the name.
type CreateInput struct {
	Name           string `json:"name" yaml:"name"`
	Slug           string `json:"slug" yaml:"slug"`
	QuotaBurst     *int   `json:"quotaBurst,omitempty" yaml:"quotaBurst,omitempty"`
	QuotaSustained *int   `json:"quotaSustained,omitempty" yaml:"quotaSustained,omitempty"`
}

func (in *CreateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name, slug.MaxLength(maxSlugLength))
	}
}

func (in CreateInput) Validate() error {
	rules := []validator.Rule{
		validator.RequiredString("name", in.Name),
		validator.MaxLenString("name", in.Name, maxNameLength),
		validator.RequiredString("slug", in.Slug),
		validator.MaxLenString("slug", in.Slug, maxSlugLength),
		validator.MatchesRegex("slug", in.Slug, tenant.SlugPattern, "lowercase letters, digits and hyphens"),
	}
	rules = append(rules, quotaRules(in.QuotaBurst, in.QuotaSustained)...)
	return validator.Apply(rules...)
}

// UpdateInput changes a tenant. Nil fields are kept. The slug is immutable.
type UpdateInput struct {
	Name           *string `json:"name,omitempty"`
	QuotaBurst     *int    `json:"quotaBurst,omitempty"`
	QuotaSustained *int    `json:"quotaSustained,omitempty"`
}

func (in UpdateInput) Validate() error {
	name := validator.Deref(in.Name)
	return validator.Apply(slices.Concat(
		validator.When(in.Name != nil,
			validator.RequiredString("name", name),
			validator.MaxLenString("name", name, maxNameLength)),
		quotaRules(in.QuotaBurst, in.QuotaSustained),
	)...)
}

func quotaRules(burst, sustained *int) []validator.Rule {
	return slices.Concat(
		validator.When(burst != nil,
			validator.RangeNum("quotaBurst", validator.Deref(burst), tenant.MinQuotaBurst, tenant.MaxQuotaBurst)),
		validator.When(sustained != nil,
			validator.RangeNum("quotaSustained", validator.Deref(sustained), tenant.MinQuotaSustained, tenant.MaxQuotaSustained)),
	)
}
