// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package validation accumulates constructor argument checks into a single error.
package validation

import (
	"go.uber.org/multierr"
)

// Validator is implemented by anything able to check itself
type Validator interface {
	Validate() error
}

// Chain runs a list of validators. Every violation is collected and
// combined into one error that errors.Is can inspect.
type Chain struct {
	validators []Validator
}

// New creates a new validation chain.
func New() *Chain {
	return &Chain{
		validators: make([]Validator, 0, 4),
	}
}

// AddValidator adds validator to the validation chain.
func (c *Chain) AddValidator(v Validator) *Chain {
	c.validators = append(c.validators, v)
	return c
}

// AddAssertion adds a check failing with err when isTrue is false.
func (c *Chain) AddAssertion(isTrue bool, err error) *Chain {
	return c.AddValidator(NewAssertion(isTrue, err))
}

// Validate runs the validation chain and returns the resulting error(s).
func (c *Chain) Validate() error {
	var violations error
	for _, v := range c.validators {
		violations = multierr.Append(violations, v.Validate())
	}
	return violations
}
