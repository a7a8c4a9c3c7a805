package maze

import (
	"encoding/json"
	"fmt"
)

// Connection records the solver's history on one side of a cell.
type Connection int8

const (
	ConnectionNone  Connection = iota // untouched
	ConnectionRight                   // part of the path found so far
	ConnectionWrong                   // explored and abandoned
)

// Connection implements [fmt.Stringer]
func (c Connection) String() string {
	switch c {
	case ConnectionNone:
		return "none"
	case ConnectionRight:
		return "right"
	case ConnectionWrong:
		return "wrong"
	default:
		return fmt.Sprintf("connection(%d)", int8(c))
	}
}

// Connection implements [encoding.TextMarshaler]
func (c Connection) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// WallSet holds one flag per side, indexed by [Direction].
type WallSet [4]bool

func FilledWalls() WallSet {
	return WallSet{true, true, true, true}
}

// WallSet implements [json.Marshaler]
func (s WallSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]bool{
		"up":    s[Up],
		"down":  s[Down],
		"left":  s[Left],
		"right": s[Right],
	})
}

// ConnectionSet holds one marker per side, indexed by [Direction].
type ConnectionSet [4]Connection

// ConnectionSet implements [json.Marshaler]
func (s ConnectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Connection{
		"up":    s[Up],
		"down":  s[Down],
		"left":  s[Left],
		"right": s[Right],
	})
}

// toWrong demotes every Right side to Wrong.
func (s ConnectionSet) toWrong() ConnectionSet {
	for i, c := range s {
		if c == ConnectionRight {
			s[i] = ConnectionWrong
		}
	}
	return s
}

// toRight promotes every Wrong side back to Right, except the one facing
// except.
func (s ConnectionSet) toRight(except Direction) ConnectionSet {
	for _, d := range Directions {
		if d != except && s[d] == ConnectionWrong {
			s[d] = ConnectionRight
		}
	}
	return s
}

func (s ConnectionSet) has(c Connection) bool {
	for _, v := range s {
		if v == c {
			return true
		}
	}
	return false
}

type Cell struct {
	Walls       WallSet       `json:"walls"`
	Connections ConnectionSet `json:"connections"`
	Bordered    WallSet       `json:"bordered"` // fixed at creation
	Visible     bool          `json:"visible"`
	Visited     bool          `json:"visited"`
}
