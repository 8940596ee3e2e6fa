package processor

// Stage is a step of the staged loading display
type Stage struct {
	Index   int
	Message string
}

// Loading stages in display order
var Stages = []Stage{
	{Index: 0, Message: "Composing the poem..."},
	{Index: 1, Message: "Painting with ink..."},
	{Index: 2, Message: "Rendering the scene..."},
	{Index: 3, Message: "Almost finished..."},
}

// StageAt returns the stage at index, clamped to the known stages
func StageAt(index int) Stage {
	if index < 0 {
		index = 0
	}
	if index >= len(Stages) {
		index = len(Stages) - 1
	}
	return Stages[index]
}

// StageObserver is notified whenever a generation reaches a new stage
type StageObserver func(Stage)
