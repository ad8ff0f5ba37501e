// MIT License
//
// Copyright (c) 2023 kache.io
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

package consumer

import (
	"bytes"
	"context"
	"strings"

	"github.com/kacheio/monocle/pkg/signals"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fragmentContext is the parse context every HTML fragment in this package
// is parsed/rendered under. "body" accepts the widest range of inline and
// block content the embed templates may produce (a, img, div, iframe).
func fragmentContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// Devour parses content as an HTML fragment, replaces every text node that
// matches the URL pattern with the parsed HTML of its enrichment, and
// serializes the result. A text node whose immediate parent is an <a>
// element is left untouched (ground: spec.md §4.8; DOM walk grounded on
// EdgeComet-engine's htmlprocessor/dom.go).
func (c *Consumer) Devour(ctx context.Context, content string, maxwidth, maxheight int) (string, error) {
	c.emit(signals.PreConsume{})
	defer c.emit(signals.PostConsume{})

	nodes, err := html.ParseFragment(strings.NewReader(content), fragmentContext())
	if err != nil {
		return "", err
	}

	for _, n := range nodes {
		c.devourNode(ctx, n, maxwidth, maxheight)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// devourNode walks n's children, replacing matched text nodes in place.
func (c *Consumer) devourNode(ctx context.Context, n *html.Node, maxwidth, maxheight int) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling

		if child.Type == html.TextNode && urlPattern.MatchString(child.Data) {
			if isAnchored(child) {
				child = next
				continue
			}
			if replaced := c.enrichTextNode(ctx, child, maxwidth, maxheight); replaced {
				child = next
				continue
			}
		} else {
			c.devourNode(ctx, child, maxwidth, maxheight)
		}

		child = next
	}
}

func isAnchored(n *html.Node) bool {
	return n.Parent != nil && n.Parent.Type == html.ElementNode && n.Parent.DataAtom == atom.A
}

// enrichTextNode replaces child with the parsed HTML of its enrichment. A
// parse failure leaves the original text node in place.
func (c *Consumer) enrichTextNode(ctx context.Context, child *html.Node, maxwidth, maxheight int) bool {
	parent := child.Parent
	enriched := c.Enrich(ctx, child.Data, maxwidth, maxheight)

	frag, err := html.ParseFragment(strings.NewReader(enriched), fragmentContext())
	if err != nil {
		return false
	}
	for _, f := range frag {
		parent.InsertBefore(f, child)
	}
	parent.RemoveChild(child)
	return true
}
