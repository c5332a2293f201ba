package heuristic

// vagueMarkers are modal hedges that make a statement unverifiable as fact
var vagueMarkers = []string{
	"might", "may be", "may have", "possibly", "perhaps", "maybe",
	"seems to", "seem to", "appears to", "appear to",
	"could be", "could have", "might be",
	"likely", "unlikely", "probably", "presumably",
	"allegedly", "reportedly", "supposedly", "arguably",
	"it is believed", "some say", "some believe", "it is thought",
	"rumored", "speculated",
}

// inferenceConnectives signal reasoning that goes beyond what a snippet states
var inferenceConnectives = []string{
	"therefore", "thus", "hence", "consequently",
	"because", "due to", "as a result",
	"implies", "implying", "which means", "it follows that",
	"so that", "accordingly", "leads to", "results in",
}

