package pkg

import "strconv"

const DefaultPerPage = 10

// Paginator 页码分页，页码从 1 开始，越界时夹到最近的合法页
type Paginator struct {
	Count    int64
	PerPage  int
	NumPages int
	Number   int
}

// NewPaginator pageParam 为空或不是整数时取第 1 页
func NewPaginator(count int64, perPage int, pageParam string) Paginator {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if count < 0 {
		count = 0
	}
	numPages := int((count + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		// 没有数据时也保留一页空页
		numPages = 1
	}

	number, err := strconv.Atoi(pageParam)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Paginator{Count: count, PerPage: perPage, NumPages: numPages, Number: number}
}

func (p Paginator) Offset() int { return (p.Number - 1) * p.PerPage }

func (p Paginator) Limit() int { return p.PerPage }

func (p Paginator) HasPrevious() bool { return p.Number > 1 }

func (p Paginator) HasNext() bool { return p.Number < p.NumPages }

func (p Paginator) HasOtherPages() bool { return p.NumPages > 1 }

func (p Paginator) PreviousPageNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

func (p Paginator) NextPageNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

func (p Paginator) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}
