package op

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Encode serializes op into its self-describing textual tagged form.
func Encode(o Op) []byte {
	var n sexprNode
	switch o.Tag {
	case TagAdd:
		owner := taggedEmpty("owner")
		if o.Owner != "" {
			owner = taggedAtom("owner", string(o.Owner))
		}
		n = listNode(atomNode("add"), owner, taggedAtom("name", o.Name))
	case TagRemove:
		n = listNode(atomNode("remove"), taggedAtom("name", o.Name))
	case TagAck:
		n = listNode(atomNode("ack"), taggedAtom("name", o.ID.Name), taggedAtom("id", strconv.FormatUint(o.ID.Sequence, 10)))
	case TagSend:
		n = listNode(
			atomNode("send"),
			taggedAtom("origin", string(o.SendOrigin)),
			taggedAtom("name", o.Name),
			taggedAtom("id", strconv.FormatUint(o.ID.Sequence, 10)),
			taggedAtom("ts", strconv.FormatInt(o.TimestampNS, 10)),
			taggedList("msg", encodeMessage(o.Message)),
		)
	default:
		return nil
	}
	var sb strings.Builder
	n.write(&sb)
	return []byte(sb.String())
}

func encodeMessage(m Message) sexprNode {
	return listNode(
		taggedAtom("kind", strconv.Itoa(int(m.Kind))),
		taggedAtom("reply", m.ReplyTo),
		taggedAtom("body", base64.StdEncoding.EncodeToString(m.Body)),
	)
}

// Decode parses bytes produced by Encode. It returns ok=false for any
// malformed or unrecognized record; callers must treat that as "drop
// and log", never as a panic-worthy condition.
func Decode(b []byte) (Op, bool) {
	n, ok := parseSexpr(b)
	if !ok || n.isAtom || len(n.children) == 0 {
		return Op{}, false
	}
	head := n.children[0]
	if !head.isAtom {
		return Op{}, false
	}
	switch head.atom {
	case "add":
		ownerField, ok := n.field("owner")
		if !ok {
			return Op{}, false
		}
		nameField, ok := n.field("name")
		if !ok {
			return Op{}, false
		}
		return Op{Tag: TagAdd, Owner: Origin(ownerField.atom), Name: nameField.atom}, true
	case "remove":
		nameField, ok := n.field("name")
		if !ok {
			return Op{}, false
		}
		return Op{Tag: TagRemove, Name: nameField.atom}, true
	case "ack":
		nameField, ok := n.field("name")
		if !ok {
			return Op{}, false
		}
		idField, ok := n.field("id")
		if !ok {
			return Op{}, false
		}
		seq, err := strconv.ParseUint(idField.atom, 10, 64)
		if err != nil {
			return Op{}, false
		}
		return Op{Tag: TagAck, ID: ID{Name: nameField.atom, Sequence: seq}}, true
	case "send":
		originField, ok := n.field("origin")
		if !ok {
			return Op{}, false
		}
		nameField, ok := n.field("name")
		if !ok {
			return Op{}, false
		}
		idField, ok := n.field("id")
		if !ok {
			return Op{}, false
		}
		seq, err := strconv.ParseUint(idField.atom, 10, 64)
		if err != nil {
			return Op{}, false
		}
		tsField, ok := n.field("ts")
		if !ok {
			return Op{}, false
		}
		ts, err := strconv.ParseInt(tsField.atom, 10, 64)
		if err != nil {
			return Op{}, false
		}
		msgField, ok := n.field("msg")
		if !ok || msgField.isAtom {
			return Op{}, false
		}
		msg, ok := decodeMessage(msgField)
		if !ok {
			return Op{}, false
		}
		return Op{
			Tag:         TagSend,
			SendOrigin:  Origin(originField.atom),
			Name:        nameField.atom,
			ID:          ID{Name: nameField.atom, Sequence: seq},
			Message:     msg,
			TimestampNS: ts,
		}, true
	default:
		return Op{}, false
	}
}

func decodeMessage(n sexprNode) (Message, bool) {
	kindField, ok := n.field("kind")
	if !ok {
		return Message{}, false
	}
	kindInt, err := strconv.Atoi(kindField.atom)
	if err != nil {
		return Message{}, false
	}
	replyField, ok := n.field("reply")
	if !ok {
		return Message{}, false
	}
	bodyField, ok := n.field("body")
	if !ok {
		return Message{}, false
	}
	body, err := base64.StdEncoding.DecodeString(bodyField.atom)
	if err != nil {
		return Message{}, false
	}
	return Message{Kind: MessageKind(kindInt), ReplyTo: replyField.atom, Body: body}, true
}
