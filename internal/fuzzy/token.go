package fuzzy

import "strconv"

// Token is a symbolic phrase identifier. The text collaborator resolves it to
// a localized word; Absent means the slot is not shown.
type Token uint8

const (
	Absent Token = iota

	One
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Eleven
	Twelve
	Thirteen
	Fourteen
	Fifteen
	Sixteen
	Seventeen
	Eighteen
	Nineteen
	Twenty
	TwentyOne
	TwentyTwo
	TwentyThree
	TwentyFour
	TwentyFive
	TwentySix
	TwentySeven
	TwentyEight
	TwentyNine

	Quarter
	Half
	Noon
	Midnight
	Past
	To
	OClock
	Hundred

	tokenCount
)

// tokenNames is indexed by Token.
var tokenNames = [tokenCount]string{
	"absent",
	"one",
	"two",
	"three",
	"four",
	"five",
	"six",
	"seven",
	"eight",
	"nine",
	"ten",
	"eleven",
	"twelve",
	"thirteen",
	"fourteen",
	"fifteen",
	"sixteen",
	"seventeen",
	"eighteen",
	"nineteen",
	"twenty",
	"twenty_one",
	"twenty_two",
	"twenty_three",
	"twenty_four",
	"twenty_five",
	"twenty_six",
	"twenty_seven",
	"twenty_eight",
	"twenty_nine",
	"quarter",
	"half",
	"noon",
	"midnight",
	"past",
	"to",
	"oclock",
	"hundred",
}

// String returns the symbolic name, e.g. "twenty_five".
func (t Token) String() string {
	if t >= tokenCount {
		return "token(" + strconv.Itoa(int(t)) + ")"
	}
	return tokenNames[t]
}

// IsNumber reports whether t is one of the number words one..twenty-nine.
func (t Token) IsNumber() bool {
	return t >= One && t <= TwentyNine
}

// Number returns the word for n in 1..29 and Absent otherwise.
func Number(n int) Token {
	if n < 1 || n > 29 {
		return Absent
	}
	return One + Token(n-1)
}

// Tokens lists every token except Absent, in declaration order.
func Tokens() []Token {
	out := make([]Token, 0, tokenCount-1)
	for t := One; t < tokenCount; t++ {
		out = append(out, t)
	}
	return out
}

// hourWord names hour 0..24; hour 0 is spoken as twelve.
func hourWord(h int) Token {
	if h == 0 {
		return Twelve
	}
	return Number(h)
}

// Phrase is the three-slot rendering of a sample. Hosts typically display
// Minute, Separator and Hour in that order.
type Phrase struct {
	Minute    Token
	Hour      Token
	Separator Token
}

// IsZero reports whether every slot is Absent.
func (p Phrase) IsZero() bool {
	return p.Minute == Absent && p.Hour == Absent && p.Separator == Absent
}

// Slots returns the tokens in display order: minute, separator, hour.
func (p Phrase) Slots() [3]Token {
	return [3]Token{p.Minute, p.Separator, p.Hour}
}

func (p Phrase) String() string {
	return "{minute:" + p.Minute.String() + " separator:" + p.Separator.String() + " hour:" + p.Hour.String() + "}"
}
