// Package prompts holds the instructions sent to the model.
//
// Each prompt gets its own file with an unexported template constant and an
// exported function that interpolates the dynamic part. The wording is part of
// the output contract the parsers rely on, so changes here must keep the
// requested JSON shape intact.
package prompts
