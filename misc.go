// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

func ToDeg(rad float64) float64 {
	return rad / PI * 180.0
}

func ToRad(deg float64) float64 {
	return deg / 180.0 * PI
}

// ------------------------------------
// Debug print function
// ------------------------------------

// Matrix as text for debug logs
func FormatMat(X mat.Matrix) string {
	r, c := X.Dims()
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("(%d x %d)\n%v", r, c, fa)
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

// Comma separated systems like "G,E"
type SysVar []SysType

func (p *SysVar) Set(s string) error {
	*p = []SysType{}
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		sys := SysType(a[0])
		if !sys.IsValid() {
			return fmt.Errorf("unknown system \"%s\"", a)
		}
		*p = append(*p, sys)
	}
	return nil
}

func (p *SysVar) String() string {
	if p == nil {
		return ""
	}
	ss := make([]string, len(*p))
	for i, s := range *p {
		ss[i] = s.String()
	}
	return strings.Join(ss, ",")
}

func (p *SysVar) Contains(s SysType) bool {
	return slices.Contains(*p, s)
}

// Date and Time Parser (for command arguments)
type TimeStr time.Time

func (p *TimeStr) MarshalText() (text []byte, err error) {
	return []byte(time.Time(*p).Format("2006/01/02 15:04:05")), nil
}

func (p *TimeStr) UnmarshalText(text []byte) error {
	t, err := time.Parse("2006/01/02 15:04:05", string(text))
	if err != nil {
		return err
	}
	*p = TimeStr(t)
	return nil
}

func NewTimeStr(t time.Time) *TimeStr {
	m := new(TimeStr)
	*m = TimeStr(t)
	return m
}
