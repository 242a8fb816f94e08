package main

// sample is one benchmark input.
type sample struct {
	Name string
	Text string
}

// samples are short support and release-note texts of growing length, each
// seeded with the typos and agreement errors the grammar prompt should fix.
var samples = []sample{
	{
		Name: "tiny",
		Text: "teh build is green now, can you merge it before lunch?",
	},
	{
		Name: "short",
		Text: `Hello,

Thanks for reporting the login problem. We was able to reproduce it on the staging enviroment and a fix is already in review. It should reach production tomorow morning. Let us know if you still see the error after that.

Regards,
Support`,
	},
	{
		Name: "medium",
		Text: `Release notes draft

This release focus on the editor. Selections that spans several paragraphs are now rewritten in place and the paragraph breaks is kept, instead of collapsing everything into one block. Lists behave the same way: each item stay a separate item.

We also fixed a bug where a result that arrive after you closed the menu was pasted anyway. Now it get discarded and nothing in the page change.

Finally, the undo history keep the last ten replacements. Undo copy the previous text to your clipboard so you can paste it back wherever you wants.`,
	},
}

// qualitySamples are single sentences used to eyeball output quality.
var qualitySamples = []sample{
	{Name: "agreement", Text: "The list of open issues are longer than last week."},
	{Name: "spelling", Text: "I recieved the invoce but the ammount is wrong."},
	{Name: "tense", Text: "Yesterday we deploy the new version and it work fine."},
	{Name: "articles", Text: "Please send me report before end of day."},
}
