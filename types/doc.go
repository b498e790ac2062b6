// Package types holds the type provider registry and the converter factory.
//
// A Provider describes one column type: its Go type, its default value and a
// negated try-convert primitive that converts a batch and flags the rows it
// could not convert. The Registry composes that primitive into Converters
// that apply a null/default policy (ChangeToDefault) and an error policy
// (ErrorOn):
//
//	convert, err := types.Default().GetConverter(data.TypeString8, reflect.TypeOf(int32(0)), types.ConvertOptions{
//		ErrorOn:         types.None,
//		Default:         "-1",
//		ChangeToDefault: types.Invalid,
//	})
//
// Converter lookup asks the target provider first, then the source provider,
// and finally converts plain strings through String8.
package types
