package stats

const lutPermille int = 1000

// ShareBuckets
//
// 用來快速定位平均份額 -> 落點分布位置 O(1)
//
// 請勿修改預設值
//   - share區間: 平均份額區間 [0,1%), [1,2%), [2,5%), ..., [75,100%), [100%,+inf)
type ShareBuckets struct {
	shareBucket    []int // 千分位邊界
	shareBucketStr []string
	shareBucketLUT []int
	maxIdx         int
}

// Buckets
//
// 用來快速定位平均份額 -> 落點分布位置 O(1)
//
// 請勿修改預設值
//   - share區間: 平均份額區間 [0,1%), [1,2%), [2,5%), ..., [75,100%), [100%,+inf)
var Buckets *ShareBuckets = newShareBuckets()

func newShareBuckets() *ShareBuckets {
	b := &ShareBuckets{
		shareBucket:    []int{10, 20, 50, 100, 150, 200, 300, 500, 750, 1000},
		shareBucketStr: []string{"[0,1%)", "[1,2%)", "[2,5%)", "[5,10%)", "[10,15%)", "[15,20%)", "[20,30%)", "[30,50%)", "[50,75%)", "[75,100%)", "[100%,+inf)"},
	}
	b.maxIdx = len(b.shareBucket)

	// 建立LUT反查表 lut[permille] = idx
	lut := make([]int, lutPermille)
	idx := 0
	last := len(b.shareBucket)
	for i := 0; i < lutPermille; i++ {
		// 僅在還有更高邊界時才前進 idx，避免越界讀取
		for idx < last && i >= b.shareBucket[idx] {
			idx++
		}
		lut[i] = idx
	}
	b.shareBucketLUT = lut
	return b
}

func (b *ShareBuckets) ShareBucketStr() []string {
	return b.shareBucketStr
}

func (b *ShareBuckets) Len() int {
	return len(b.shareBucketStr)
}

// Index 把 [0,1] 左右的份額映射到分布索引；防失控加成可能讓份額略超過 1
func (b *ShareBuckets) Index(share float64) int {
	if share < 0 {
		share = 0
	}
	p := int(share * float64(lutPermille))
	if p >= lutPermille {
		return b.maxIdx
	}
	return b.shareBucketLUT[p]
}
