//go:build gocv

package classify

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// skinShare 用 OpenCV 生成肤色 mask：BGR 转 HSV，再 InRange
func skinShare(img image.Image) (float64, error) {
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return 0, fmt.Errorf("image to mat: %w", err)
	}
	defer func() {
		_ = bgr.Close()
	}()

	hsv := gocv.NewMat()
	defer func() {
		_ = hsv.Close()
	}()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer func() {
		_ = mask.Close()
	}()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(skinHueMin, skinSatMin, skinValMin, 0),
		gocv.NewScalar(skinHueMax, skinSatMax, skinValMax, 0),
		&mask)

	total := bgr.Rows() * bgr.Cols()
	if total == 0 {
		return 0, fmt.Errorf("empty mat")
	}
	return float64(gocv.CountNonZero(mask)) / float64(total), nil
}
