package query

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

// Parser reads typed query parameters and collects every malformed one,
// so a request with several bad filters is rejected with all of them listed.
type Parser struct {
	c      *fiber.Ctx
	fields []apperr.FieldError
}

func New(c *fiber.Ctx) *Parser {
	return &Parser{c: c}
}

// String returns the trimmed parameter, "" when absent
func (p *Parser) String(key string) string {
	return strings.TrimSpace(p.c.Query(key))
}

// Int64 returns nil when the parameter is absent
func (p *Parser) Int64(key string) *int64 {
	raw := p.String(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		p.fail(key, key+" must be a non-negative integer", "numeric")
		return nil
	}
	return &v
}

// Float returns nil when the parameter is absent
func (p *Parser) Float(key string) *float64 {
	raw := p.String(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		p.fail(key, key+" must be a non-negative number", "numeric")
		return nil
	}
	return &v
}

// Bool accepts the strconv.ParseBool spellings; absent is false
func (p *Parser) Bool(key string) bool {
	raw := p.String(key)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, key+" must be true or false", "boolean")
		return false
	}
	return v
}

// OneOf returns "" when absent and rejects values outside allowed
func (p *Parser) OneOf(key string, allowed ...string) string {
	raw := p.String(key)
	if raw == "" {
		return ""
	}
	for _, a := range allowed {
		if raw == a {
			return raw
		}
	}
	p.fail(key, key+" must be one of: "+strings.Join(allowed, " "), "oneof")
	return ""
}

func (p *Parser) fail(field, message, code string) {
	p.fields = append(p.fields, apperr.FieldError{Field: field, Message: message, Code: code})
}

// Err returns a validation error listing every malformed parameter
func (p *Parser) Err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return apperr.Validation("Invalid query parameters", p.fields...)
}
