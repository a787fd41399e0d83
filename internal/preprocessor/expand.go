package preprocessor

import "strings"

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// defineSubst expands one parameterized macro reference: ref carries
// the collected actuals, value is the stored macro body. Errors go
// through errf and yield a literal stub so the reference stays visible
// in the output. Pure text-in, text-out; nothing here touches the
// token stream.
func defineSubst(ref *defRef, value string, errf func(string)) string {
	stub := " `" + ref.name + " "

	// Pass 1: walk the formal list, pairing each formal with its
	// actual (or its default after `=`). One shared depth counter
	// covers (), {} and []; the list itself supplies the depth-1 base.
	argValueByName := make(map[string]string)
	numArgs := 0
	{
		var token string
		argName := ""
		haveDefault := false
		quote := false
		paren := 1
		params := ref.params
		for cp := 1; cp < len(params); cp++ {
			ch := params[cp]
			if !quote && paren == 1 && (ch == ')' || ch == ',') {
				var valueDef string
				if haveDefault {
					valueDef = token
				} else {
					argName = token
				}
				argName = trimWhitespace(argName, true)
				if numArgs < len(ref.args) {
					// Actuals keep their trailing whitespace.
					arg := trimWhitespace(ref.args[numArgs], false)
					if arg != "" {
						valueDef = arg
					}
				} else if !haveDefault {
					errf("Define missing argument '" + argName + "' for: " + ref.name)
					return stub
				}
				argValueByName[argName] = valueDef
				argName = ""
				token = ""
				haveDefault = false
				numArgs++
			} else if !quote && paren == 1 && ch == '=' {
				haveDefault = true
				argName = token
				token = ""
			} else {
				token += string(ch)
			}
			if ch == '"' {
				quote = !quote
			} else if !quote {
				switch ch {
				case '(', '{', '[':
					paren++
				case ')', '}', ']':
					paren--
				}
			}
			if ch == '\\' && cp+1 < len(params) {
				token += string(params[cp+1])
				cp++
			}
		}
		if len(ref.args) > numArgs &&
			!(len(ref.args) == 1 && numArgs == 1 && trimWhitespace(ref.args[0], false) == "") {
			errf("Define passed too many arguments: " + ref.name)
			return stub
		}
	}

	// Pass 2: walk the body substituting formals. Identifiers admit
	// '$' anywhere and digits once begun; quote tracking keeps string
	// literals opaque except through the `" escape.
	var out strings.Builder
	argName := ""
	quote := false
	for cp := 0; cp <= len(value); cp++ {
		var ch byte
		if cp < len(value) {
			ch = value[cp]
		}
		if cp < len(value) && !quote &&
			(isAlpha(ch) || ch == '_' || ch == '$' ||
				(argName != "" && (isDigit(ch) || ch == '$'))) {
			argName += string(ch)
			continue
		}
		if argName != "" {
			if subst, ok := argValueByName[argName]; ok {
				out.WriteString(subst)
			} else {
				out.WriteString(argName)
			}
			argName = ""
		}
		if cp >= len(value) {
			break
		}
		if !quote {
			if ch == '`' && cp+1 < len(value) && value[cp+1] == '`' {
				// Token paste: the `` separator disappears.
				cp++
				continue
			}
			if ch == '`' && cp+1 < len(value) && value[cp+1] == '\\' {
				// `\ emits the backslash alone; a following `" then
				// composes into an escaped quote.
				out.WriteByte('\\')
				cp++
				continue
			}
			if ch == '`' && cp+1 < len(value) && value[cp+1] == '"' {
				// `" emits a quote without entering quote mode, so
				// formals inside the literal still substitute.
				out.WriteByte('"')
				cp++
				continue
			}
			if ch == '\\' && cp+1 < len(value) {
				out.WriteByte(ch)
				out.WriteByte(value[cp+1])
				cp++
				continue
			}
		}
		out.WriteByte(ch)
		if ch == '"' {
			quote = !quote
		}
	}
	return out.String()
}
