// Package sorter は比較関数を外から渡す安定ソート（トップダウンのマージソート）。
//
// O(n log n)、補助領域O(n)。比較が0の要素は入力順を保つ。
package sorter

import "cmp"

// 負ならaが前、正ならbが前、0なら同順位
type Compare[T any] func(a, b T) int

// itemsをソートした新しいスライスを返す。itemsは変更しない
func MergeSort[T any](items []T, compare Compare[T]) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(out) < 2 {
		return out
	}
	buf := make([]T, len(out))
	mergeSort(out, buf, compare)
	return out
}

func mergeSort[T any](s, buf []T, compare Compare[T]) {
	if len(s) < 2 {
		return
	}
	mid := len(s) / 2
	mergeSort(s[:mid], buf[:mid], compare)
	mergeSort(s[mid:], buf[mid:], compare)
	merge(s, mid, buf, compare)
}

// 左右の整列済み区間をbuf経由でsに書き戻す
func merge[T any](s []T, mid int, buf []T, compare Compare[T]) {
	copy(buf, s)
	i, j, k := 0, mid, 0
	for i < mid && j < len(s) {
		// 同順位は左を先に取るので安定
		if compare(buf[i], buf[j]) <= 0 {
			s[k] = buf[i]
			i++
		} else {
			s[k] = buf[j]
			j++
		}
		k++
	}
	for ; i < mid; i, k = i+1, k+1 {
		s[k] = buf[i]
	}
	for ; j < len(s); j, k = j+1, k+1 {
		s[k] = buf[j]
	}
}

// keyの昇順
func By[T any, K cmp.Ordered](key func(T) K) Compare[T] {
	return func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	}
}

// 逆順
func Reverse[T any](c Compare[T]) Compare[T] {
	return func(a, b T) int {
		return c(b, a)
	}
}

// firstが同順位のときだけthenで比べる
func Then[T any](first, then Compare[T]) Compare[T] {
	return func(a, b T) int {
		if r := first(a, b); r != 0 {
			return r
		}
		return then(a, b)
	}
}
