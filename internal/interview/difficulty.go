package interview

// Level is the ordinal difficulty of the next question.
type Level int

const (
	Easy Level = iota + 1
	Medium
	Hard
	Expert
)

const (
	MinLevel = Easy
	MaxLevel = Expert

	// StartingLevel is used for the opening question of every session.
	StartingLevel = Medium
)

// Adjust returns the level shifted by delta and clamped to [MinLevel, MaxLevel].
func (l Level) Adjust(delta int) Level {
	next := int(l) + delta
	if next < int(MinLevel) {
		return MinLevel
	}
	if next > int(MaxLevel) {
		return MaxLevel
	}
	return Level(next)
}

func (l Level) String() string {
	switch l {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Expert:
		return "expert"
	default:
		return "unknown"
	}
}

// Category is the quality bucket of a graded answer.
type Category string

const (
	Excellent      Category = "EXCELLENT"
	Good           Category = "GOOD"
	RightDirection Category = "RIGHT_DIRECTION"
	PartiallyWrong Category = "PARTIALLY_WRONG"
	Wrong          Category = "WRONG"
)

const (
	MinScore = 0
	MaxScore = 100

	// NeutralScore is recorded when the grader output cannot be used.
	NeutralScore = 50
)

type band struct {
	min, max int
	category Category
	delta    int
}

// bands partition [MinScore, MaxScore] with inclusive bounds.
var bands = []band{
	{min: 90, max: 100, category: Excellent, delta: 2},
	{min: 70, max: 89, category: Good, delta: 1},
	{min: 50, max: 69, category: RightDirection, delta: 0},
	{min: 30, max: 49, category: PartiallyWrong, delta: -1},
	{min: 0, max: 29, category: Wrong, delta: -2},
}

// Categorize maps a 0-100 score to its category. Out of range scores are clamped first.
func Categorize(score int) Category {
	score = clampScore(score)
	for _, b := range bands {
		if score >= b.min && score <= b.max {
			return b.category
		}
	}
	return Wrong
}

// Delta is the difficulty adjustment applied for the category.
func (c Category) Delta() int {
	for _, b := range bands {
		if b.category == c {
			return b.delta
		}
	}
	return 0
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func validScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
