/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package trace

import (
	"strings"

	"github.com/dgraph-io/gqlparser/v2/ast"
)

// TypeSignature renders a GraphQL AST type into the signature string a
// FieldEvent carries, e.g. "Author", "[Item!]!". Execution engines built on
// gqlparser can feed resolver return types straight through this.
func TypeSignature(t *ast.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// IsListSignature reports whether a type signature denotes a list, i.e. the
// type (ignoring non-null markers) is enclosed in brackets. This is the only
// place the textual format of a signature is inspected; everything downstream
// of event recording works off FieldEvent.IsList.
func IsListSignature(sig string) bool {
	sig = strings.TrimSuffix(sig, "!")
	return strings.HasPrefix(sig, "[") && strings.HasSuffix(sig, "]")
}
