package main

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"lsmkv/internal/common"
	"lsmkv/internal/db"
)

// seedIndexKey stores how many seed rounds have run.
const seedIndexKey = math.MaxUint64

func loadSeedIndex(engine *db.DB) int {
	val, found, err := engine.Get(seedIndexKey)
	if err != nil || !found {
		return 0
	}
	idx, err := strconv.Atoi(string(val))
	if err != nil {
		return 0
	}
	fmt.Printf("resumed seed index from %d\n", idx)
	return idx
}

var kvPairs = [][2]string{
	{"apple", "artichoke"},
	{"banana", "broccoli"},
	{"cherry", "cabbage"},
	{"durian", "daikon"},
	{"elderberry", "eggplant"},
	{"fig", "fennel"},
	{"grapefruit", "ginger"},
	{"honeydew", "horseradish"},
	{"imbe", "ivygourd"},
	{"jackfruit", "jicama"},
	{"kiwi", "kale"},
	{"lime", "leek"},
	{"mango", "mushroom"},
	{"nectarine", "nopale"},
	{"orange", "okra"},
	{"peach", "peas"},
	{"quince", "quinoa"},
	{"raspberry", "radish"},
	{"strawberry", "spinach"},
	{"tangerine", "tomato"},
	{"ugni", "ube"},
	{"voavanga", "vanilla"},
	{"watermelon", "watercress"},
	{"ximenia", "xanthan"},
	{"yuzu", "yam"},
	{"zarzamora", "zucchini"},
}

// runSeed writes x rounds of 26 pairs. Round i uses keys
// i*26 .. i*26+25, in shuffled order.
func runSeed(engine *db.DB, x int, seedIndex *int) {
	start := time.Now()
	count := 0
	startIndex := *seedIndex

	order := rand.Perm(len(kvPairs))
	for i := 0; i < x; i++ {
		for _, j := range order {
			key := uint64(*seedIndex*len(kvPairs) + j)
			value := fmt.Sprintf("%s-%s-%d", kvPairs[j][0], kvPairs[j][1], *seedIndex)
			if err := engine.Put(key, []byte(value)); err != nil {
				fmt.Printf("seed error: %v\n", err)
				continue
			}
			count++
		}
		*seedIndex++
	}

	if err := engine.Put(seedIndexKey, []byte(fmt.Sprint(*seedIndex))); err != nil {
		fmt.Printf("warning: failed to persist seed index: %v\n", err)
	}

	avgPerEntry := time.Since(start) / time.Duration(max(count, 1))
	common.LogDuration(start, "seeded %d entries (26 * %d, index %d-%d) - %v/entry",
		count, x, startIndex, *seedIndex-1, avgPerEntry)
}
