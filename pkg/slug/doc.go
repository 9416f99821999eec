// Package slug turns display names into URL-safe identifiers.
//
//	slug.Make("YMS Yazılım")                          // "yms-yazilim"
//	slug.Make("Zebra Electronics", slug.MaxLength(6)) // "zebra"
//
// Letters with common Latin diacritics are folded to ASCII, everything else
// that is not a letter or digit becomes a single separator. The result never
// starts or ends with a separator and may be empty.
package slug
