package imgproc

import "image"

// 方形结构元素的灰度形态学运算。k×k 元素的锚点在 k/2（与 OpenCV 相同），
// 腐蚀使用反射后的元素，保证闭/开运算不会平移边缘。越界像素不参与计算。

// closing 先膨胀后腐蚀，填补小于结构元素的孔洞
func closing(img *image.Gray, k int) *image.Gray {
	return erode(dilate(img, k), k)
}

// opening 先腐蚀后膨胀，去掉小于结构元素的毛刺；k=1 时等价于原图
func opening(img *image.Gray, k int) *image.Gray {
	return dilate(erode(img, k), k)
}

func dilate(img *image.Gray, k int) *image.Gray {
	lo, hi := window(k)
	return rank(img, lo, hi, maxUint8)
}

func erode(img *image.Gray, k int) *image.Gray {
	lo, hi := window(k)
	return rank(img, -hi, -lo, minUint8)
}

// window 返回膨胀时相对锚点的偏移区间 [lo, hi]
func window(k int) (int, int) {
	if k < 1 {
		k = 1
	}
	anchor := k / 2
	return -anchor, k - 1 - anchor
}

// rank 在 [lo,hi]×[lo,hi] 邻域内取 pick，先按行后按列（方形元素可分离）
func rank(img *image.Gray, lo, hi int, pick func(a, b uint8) uint8) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rows := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		dst := rows.Pix[y*rows.Stride : y*rows.Stride+w]
		for x := 0; x < w; x++ {
			v := src[x]
			for d := lo; d <= hi; d++ {
				if xx := x + d; xx >= 0 && xx < w {
					v = pick(v, src[xx])
				}
			}
			dst[x] = v
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := rows.Pix[y*rows.Stride+x]
			for d := lo; d <= hi; d++ {
				if yy := y + d; yy >= 0 && yy < h {
					v = pick(v, rows.Pix[yy*rows.Stride+x])
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

func maxUint8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func minUint8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}
