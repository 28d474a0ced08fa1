// Package test holds small generators shared by the lexer and parser test
// suites.
package test

import (
	"math/rand"
	"strings"
)

const validTokens = "func;main;turtle;if;elif;else;for;while;return;and;or;in;not;true;false;null;" +
	"\"a short string\";\"this is a longer string containing a bunch of text: Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.\";\"\";" +
	"+;-;*;/;//;%;=;==;!=;<;<=;>;>=;+=;-=;*=;/=;%=;(;);[;];{;};.;,;;;:;123;321;0;#comment\n;\n"

// GetRandomTokens joins size randomly chosen valid Tutel tokens with a
// single space, for use as fuzz-style lexer input.
func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

// GetRandomTokensWithSep is GetRandomTokens with a caller-chosen separator,
// letting callers probe the lexer's whitespace handling.
func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
