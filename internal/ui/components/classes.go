// Package components holds the shared class sets for buttons, inputs and cards.
// Callers pass extra classes, which win over the defaults on conflict.
package components

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Variant string

const (
	VariantPrimary     Variant = "primary"
	VariantSecondary   Variant = "secondary"
	VariantDestructive Variant = "destructive"
	VariantGhost       Variant = "ghost"
)

var buttonVariants = map[Variant]string{
	VariantPrimary:     "bg-zinc-900 text-white hover:bg-zinc-800",
	VariantSecondary:   "bg-zinc-100 text-zinc-900 hover:bg-zinc-200",
	VariantDestructive: "bg-red-600 text-white hover:bg-red-500",
	VariantGhost:       "bg-transparent text-zinc-700 hover:bg-zinc-100",
}

// Button returns the class list for a button of the given variant.
func Button(variant Variant, extra ...string) string {
	base, ok := buttonVariants[variant]
	if !ok {
		base = buttonVariants[VariantPrimary]
	}
	return twmerge.Merge(append([]string{
		"inline-flex items-center justify-center gap-2 rounded-md px-4 py-2 text-sm font-medium transition-colors",
		"disabled:pointer-events-none disabled:opacity-50",
		base,
	}, extra...)...)
}

func Input(extra ...string) string {
	return twmerge.Merge(append([]string{
		"block w-full rounded-md border border-zinc-300 bg-white px-3 py-2 text-sm",
		"focus:border-zinc-900 focus:outline-none",
	}, extra...)...)
}

func Card(extra ...string) string {
	return twmerge.Merge(append([]string{"rounded-xl border border-zinc-200 bg-white p-6 shadow-sm"}, extra...)...)
}

// Merge joins class lists. Later classes win on conflict.
func Merge(classes ...string) string {
	return twmerge.Merge(classes...)
}
