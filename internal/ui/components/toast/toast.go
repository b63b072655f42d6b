package toast

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

type Props struct {
	Title       string
	Description string
	Variant     Variant
	Dismissible bool
}

var variantClasses = map[Variant]string{
	VariantDefault: "border-zinc-200 bg-white text-zinc-900",
	VariantSuccess: "border-green-200 bg-green-50 text-green-900",
	VariantError:   "border-red-200 bg-red-50 text-red-900",
}

func classes(v Variant) string {
	variant, ok := variantClasses[v]
	if !ok {
		variant = variantClasses[VariantDefault]
	}
	return twmerge.Merge("pointer-events-auto w-80 rounded-lg border p-4 shadow-lg", variant)
}
