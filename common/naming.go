package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

//go:generate go run github.com/dmarkham/enumer -json -type Constellation

// Constellation defines the kind of satellites
type Constellation int

const (
	Unknown   Constellation = iota
	Sentinel1               // MMM_BB_TTTR_LFPP_YYYYMMDDTHHMMSS_YYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC
	Sentinel2               // MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx_<Product Discriminator>
	Landsat89               // LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CX_TX
)

var landsatRe = regexp.MustCompile("^L[OTC]0[89]")

// GetConstellationFromProductID guesses the constellation from a product identifier
func GetConstellationFromProductID(productID string) Constellation {
	if strings.HasPrefix(productID, "S1") {
		return Sentinel1
	}
	if strings.HasPrefix(productID, "S2") {
		return Sentinel2
	}
	if landsatRe.MatchString(productID) {
		return Landsat89
	}
	return Unknown
}

// GetDateFromProductID extracts the acquisition date encoded in the product identifier
func GetDateFromProductID(productID string) (time.Time, error) {
	info, err := Info(productID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", fmt.Sprintf("%s%s%s", info["YEAR"], info["MONTH"], info["DAY"]))
}

// Info parses the product identifier into its named fields
func Info(productID string) (map[string]string, error) {
	switch GetConstellationFromProductID(productID) {
	case Sentinel2:
		// S2B_MSIL2A_20200806T104619_N0214_R051_T31TFJ_20200806T135136
		if len(productID) < len("MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx") {
			return nil, fmt.Errorf("invalid Sentinel2 product id: " + productID)
		}
		return map[string]string{
			"SCENE":         productID,
			"MISSION_ID":    productID[0:3],
			"PRODUCT_LEVEL": productID[7:10],
			"DATE":          productID[11:19],
			"YEAR":          productID[11:15],
			"MONTH":         productID[15:17],
			"DAY":           productID[17:19],
			"TIME":          productID[20:26],
			"HOUR":          productID[20:22],
			"MINUTE":        productID[22:24],
			"SECOND":        productID[24:26],
			"PDGS":          productID[28:32],
			"ORBIT":         productID[34:37],
			"TILE":          productID[38:44],
			"LATITUDE_BAND": productID[39:41],
			"GRID_SQUARE":   productID[41:42],
			"GRANULE_ID":    productID[42:44],
		}, nil
	case Landsat89:
		// LC09_L1GT_166003_20250603_20250603_02_T2
		if len(productID) < len("LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CX_TX") {
			return nil, fmt.Errorf("invalid Landsat8/9 product id: " + productID)
		}
		sensorCollection := "oli-tirs"
		switch productID[1:2] {
		case "O":
			sensorCollection = "oli"
		case "T":
			sensorCollection = "tirs"
		}
		return map[string]string{
			"SCENE":      productID,
			"MISSION_ID": productID[0:1] + productID[2:4],
			"LEVEL":      productID[5:9],
			"DATE":       productID[17:25],
			"YEAR":       productID[17:21],
			"MONTH":      productID[21:23],
			"DAY":        productID[23:25],
			"COLLECTION": sensorCollection,
			"PATH":       productID[10:13],
			"ROW":        productID[13:16],
		}, nil
	}
	return nil, fmt.Errorf("Info: constellation not supported")
}
