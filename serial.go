// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import "code.hybscloud.com/atomix"

// FiberID is a monotonically increasing fiber identifier.
// Each fiber creation assigns the next value; ids start at 1,
// so a zero FiberID never names a live fiber.
type FiberID = uint32

// counter is the global monotonic counter for fiber ids.
// This is the only process-wide mutable state in the package.
var counter atomix.Uint32

// nextFiberID returns the next monotonically increasing fiber id.
func nextFiberID() FiberID {
	return counter.Add(1)
}
