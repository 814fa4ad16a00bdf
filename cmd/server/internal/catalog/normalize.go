package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// labelFolder 去除变音符号：NFD 分解后删除 Mn 类码点再合成。
// 目录标签来自西语表格，"Educación" 与 "EDUCACION" 需落入同一分桶。
var labelFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLabel 规整分类标签，作为各维度分桶的键。
// 返回去重音、去首尾空白、全大写的形式；空标签规整为空串。
func NormalizeLabel(label string) string {
	folded, _, err := transform.String(labelFolder, label)
	if err != nil {
		folded = label
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}
