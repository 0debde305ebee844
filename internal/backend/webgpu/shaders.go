//go:build windows

// Package webgpu provides embedded WGSL compute shaders for the convolution primitives.
package webgpu

// WGSL compute shaders for the convolution primitives.
// Using string constants instead of embed for simplicity.

// workgroupSize is the default number of threads per workgroup for 1D kernels.
const workgroupSize = 256

// maxWorkgroupsPerDim is the WebGPU limit on workgroups along one dispatch axis.
const maxWorkgroupsPerDim = 65535

// convParams is the uniform block shared by every convolution kernel.
// Field order must match packConvParams.
const convParams = `
struct Params {
    N: u32,
    C: u32,
    H: u32,
    W: u32,
    K: u32,
    R: u32,
    S: u32,
    P: u32,
    Q: u32,
    pad_h: u32,
    pad_w: u32,
    str_h: u32,
    str_w: u32,
    flag: u32,   // layout (0 = NCHW, 1 = NHWC) or shuffled filter (1)
    total: u32,  // number of threads doing work
    _pad: u32,
}
`

// linearIndex flattens a 2D dispatch of 256-wide workgroups.
const linearIndex = `
fn linear_index(gid: vec3<u32>, groups: vec3<u32>) -> u32 {
    return gid.y * groups.x * 256u + gid.x;
}

fn image_index(c: u32, h: u32, w: u32) -> u32 {
    if (params.flag == 1u) {
        return (h * params.W + w) * params.C + c;
    }
    return (c * params.H + h) * params.W + w;
}
`

// gemmShader computes C = alpha*op(A)*op(B) + beta*C, one thread per C element.
// A, B and C are row-major; op() honours the transpose flags.
const gemmShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> c: array<f32>;

struct Params {
    M: u32,
    N: u32,
    K: u32,
    trans_a: u32,
    trans_b: u32,
    alpha: f32,
    beta: f32,
    _pad: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        var av: f32;
        if (params.trans_a == 1u) {
            av = a[k * params.M + row];
        } else {
            av = a[row * params.K + k];
        }
        var bv: f32;
        if (params.trans_b == 1u) {
            bv = b[col * params.K + k];
        } else {
            bv = b[k * params.N + col];
        }
        sum = sum + av * bv;
    }

    let idx = row * params.N + col;
    var res = params.alpha * sum;
    if (params.beta != 0.0) {
        res = res + params.beta * c[idx];
    }
    c[idx] = res;
}
`

// tiledGemmShader has the gemmShader contract but stages 16x16 tiles of op(A)
// and op(B) in workgroup memory before accumulating.
const tiledGemmShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> c: array<f32>;

struct Params {
    M: u32,
    N: u32,
    K: u32,
    trans_a: u32,
    trans_b: u32,
    alpha: f32,
    beta: f32,
    _pad: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

const TILE: u32 = 16u;
var<workgroup> tile_a: array<array<f32, 16>, 16>;
var<workgroup> tile_b: array<array<f32, 16>, 16>;

fn load_a(row: u32, k: u32) -> f32 {
    if (row >= params.M || k >= params.K) {
        return 0.0;
    }
    if (params.trans_a == 1u) {
        return a[k * params.M + row];
    }
    return a[row * params.K + k];
}

fn load_b(k: u32, col: u32) -> f32 {
    if (k >= params.K || col >= params.N) {
        return 0.0;
    }
    if (params.trans_b == 1u) {
        return b[col * params.K + k];
    }
    return b[k * params.N + col];
}

@compute @workgroup_size(16, 16)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>
) {
    let row = global_id.y;
    let col = global_id.x;
    let ly = local_id.y;
    let lx = local_id.x;

    var sum: f32 = 0.0;
    let tiles = (params.K + TILE - 1u) / TILE;
    for (var t: u32 = 0u; t < tiles; t = t + 1u) {
        tile_a[ly][lx] = load_a(row, t * TILE + lx);
        tile_b[ly][lx] = load_b(t * TILE + ly, col);
        workgroupBarrier();

        for (var k: u32 = 0u; k < TILE; k = k + 1u) {
            sum = sum + tile_a[ly][k] * tile_b[k][lx];
        }
        workgroupBarrier();
    }

    if (row >= params.M || col >= params.N) {
        return;
    }
    let idx = row * params.N + col;
    var res = params.alpha * sum;
    if (params.beta != 0.0) {
        res = res + params.beta * c[idx];
    }
    c[idx] = res;
}
`

// transposeShader transposes a 2D matrix.
const transposeShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.rows || col >= params.cols) {
        return;
    }

    let in_idx = row * params.cols + col;
    let out_idx = col * params.rows + row;
    result[out_idx] = input[in_idx];
}
`

// im2colShader writes one patch matrix element per thread.
// Patches: [P*Q, C*R*S]; padding reads as zero.
const im2colShader = `
@group(0) @binding(0) var<storage, read> image: array<f32>;
@group(0) @binding(1) var<storage, read_write> patches: array<f32>;
` + convParams + `
@group(0) @binding(2) var<uniform> params: Params;
` + linearIndex + `
@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(num_workgroups) groups: vec3<u32>
) {
    let idx = linear_index(global_id, groups);
    if (idx >= params.total) {
        return;
    }

    let crs = params.C * params.R * params.S;
    let pq = idx / crs;
    let col = idx % crs;
    let p = pq / params.Q;
    let q = pq % params.Q;
    let c = col / (params.R * params.S);
    let r = (col / params.S) % params.R;
    let s = col % params.S;

    let h = i32(p * params.str_h + r) - i32(params.pad_h);
    let w = i32(q * params.str_w + s) - i32(params.pad_w);
    var v: f32 = 0.0;
    if (h >= 0 && h < i32(params.H) && w >= 0 && w < i32(params.W)) {
        v = image[image_index(c, u32(h), u32(w))];
    }
    patches[idx] = v;
}
`

// col2imShader gathers, for one image pixel per thread, every patch element
// that was read from it and adds the sum to the pixel.
const col2imShader = `
@group(0) @binding(0) var<storage, read> patches: array<f32>;
@group(0) @binding(1) var<storage, read_write> image: array<f32>;
` + convParams + `
@group(0) @binding(2) var<uniform> params: Params;
` + linearIndex + `
@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(num_workgroups) groups: vec3<u32>
) {
    let idx = linear_index(global_id, groups);
    if (idx >= params.total) {
        return;
    }

    let c = idx / (params.H * params.W);
    let h = (idx / params.W) % params.H;
    let w = idx % params.W;
    let crs = params.C * params.R * params.S;

    var sum: f32 = 0.0;
    for (var r: u32 = 0u; r < params.R; r = r + 1u) {
        let ph = i32(h + params.pad_h) - i32(r);
        if (ph < 0 || ph % i32(params.str_h) != 0) {
            continue;
        }
        let p = u32(ph) / params.str_h;
        if (p >= params.P) {
            continue;
        }
        for (var s: u32 = 0u; s < params.S; s = s + 1u) {
            let qw = i32(w + params.pad_w) - i32(s);
            if (qw < 0 || qw % i32(params.str_w) != 0) {
                continue;
            }
            let q = u32(qw) / params.str_w;
            if (q >= params.Q) {
                continue;
            }
            sum = sum + patches[(p * params.Q + q) * crs + (c * params.R + r) * params.S + s];
        }
    }

    let dst = image_index(c, h, w);
    image[dst] = image[dst] + sum;
}
`

// directForwardShader computes one KPQN output element per thread from a CHWN
// input and a CRSK filter.
const directForwardShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> weights: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;
` + convParams + `
@group(0) @binding(3) var<uniform> params: Params;
` + linearIndex + `
@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(num_workgroups) groups: vec3<u32>
) {
    let idx = linear_index(global_id, groups);
    if (idx >= params.total) {
        return;
    }

    let n = idx % params.N;
    let q = (idx / params.N) % params.Q;
    let p = (idx / (params.N * params.Q)) % params.P;
    let k = idx / (params.N * params.Q * params.P);

    var sum: f32 = 0.0;
    for (var c: u32 = 0u; c < params.C; c = c + 1u) {
        for (var r: u32 = 0u; r < params.R; r = r + 1u) {
            let h = i32(p * params.str_h + r) - i32(params.pad_h);
            if (h < 0 || h >= i32(params.H)) {
                continue;
            }
            for (var s: u32 = 0u; s < params.S; s = s + 1u) {
                let w = i32(q * params.str_w + s) - i32(params.pad_w);
                if (w < 0 || w >= i32(params.W)) {
                    continue;
                }
                let x = input[((c * params.H + u32(h)) * params.W + u32(w)) * params.N + n];
                sum = sum + x * weights[((c * params.R + r) * params.S + s) * params.K + k];
            }
        }
    }
    output[idx] = sum;
}
`

// directBackwardShader computes one CHWN input-gradient element per thread.
// flag = 1 selects the shuffled [C, R, S, K] filter, otherwise the filter is KCRS.
const directBackwardShader = `
@group(0) @binding(0) var<storage, read> output_grad: array<f32>;
@group(0) @binding(1) var<storage, read> weights: array<f32>;
@group(0) @binding(2) var<storage, read_write> input_grad: array<f32>;
` + convParams + `
@group(0) @binding(3) var<uniform> params: Params;
` + linearIndex + `
fn weight(k: u32, c: u32, r: u32, s: u32) -> f32 {
    if (params.flag == 1u) {
        return weights[((c * params.R + (params.R - 1u - r)) * params.S + (params.S - 1u - s)) * params.K + k];
    }
    return weights[((k * params.C + c) * params.R + r) * params.S + s];
}

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(num_workgroups) groups: vec3<u32>
) {
    let idx = linear_index(global_id, groups);
    if (idx >= params.total) {
        return;
    }

    let n = idx % params.N;
    let w = (idx / params.N) % params.W;
    let h = (idx / (params.N * params.W)) % params.H;
    let c = idx / (params.N * params.W * params.H);

    var sum: f32 = 0.0;
    for (var r: u32 = 0u; r < params.R; r = r + 1u) {
        let ph = i32(h + params.pad_h) - i32(r);
        if (ph < 0 || ph % i32(params.str_h) != 0) {
            continue;
        }
        let p = u32(ph) / params.str_h;
        if (p >= params.P) {
            continue;
        }
        for (var s: u32 = 0u; s < params.S; s = s + 1u) {
            let qw = i32(w + params.pad_w) - i32(s);
            if (qw < 0 || qw % i32(params.str_w) != 0) {
                continue;
            }
            let q = u32(qw) / params.str_w;
            if (q >= params.Q) {
                continue;
            }
            for (var k: u32 = 0u; k < params.K; k = k + 1u) {
                sum = sum + weight(k, c, r, s) * output_grad[((k * params.P + p) * params.Q + q) * params.N + n];
            }
        }
    }
    input_grad[idx] = sum;
}
`

// directUpdateShader computes one CRSK filter-gradient element per thread.
const directUpdateShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> output_grad: array<f32>;
@group(0) @binding(2) var<storage, read_write> update: array<f32>;
` + convParams + `
@group(0) @binding(3) var<uniform> params: Params;
` + linearIndex + `
@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(num_workgroups) groups: vec3<u32>
) {
    let idx = linear_index(global_id, groups);
    if (idx >= params.total) {
        return;
    }

    let k = idx % params.K;
    let s = (idx / params.K) % params.S;
    let r = (idx / (params.K * params.S)) % params.R;
    let c = idx / (params.K * params.S * params.R);

    var sum: f32 = 0.0;
    for (var p: u32 = 0u; p < params.P; p = p + 1u) {
        let h = i32(p * params.str_h + r) - i32(params.pad_h);
        if (h < 0 || h >= i32(params.H)) {
            continue;
        }
        for (var q: u32 = 0u; q < params.Q; q = q + 1u) {
            let w = i32(q * params.str_w + s) - i32(params.pad_w);
            if (w < 0 || w >= i32(params.W)) {
                continue;
            }
            let in_base = ((c * params.H + u32(h)) * params.W + u32(w)) * params.N;
            let dy_base = ((k * params.P + p) * params.Q + q) * params.N;
            for (var n: u32 = 0u; n < params.N; n = n + 1u) {
                sum = sum + input[in_base + n] * output_grad[dy_base + n];
            }
        }
    }
    update[idx] = sum;
}
`

// filterShuffleShader writes shuffled[c][r][s][k] = weights[k][c][R-1-r][S-1-s].
const filterShuffleShader = `
@group(0) @binding(0) var<storage, read> weights: array<f32>;
@group(0) @binding(1) var<storage, read_write> shuffled: array<f32>;
` + convParams + `
@group(0) @binding(2) var<uniform> params: Params;
` + linearIndex + `
@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(num_workgroups) groups: vec3<u32>
) {
    let idx = linear_index(global_id, groups);
    if (idx >= params.total) {
        return;
    }

    let k = idx % params.K;
    let s = (idx / params.K) % params.S;
    let r = (idx / (params.K * params.S)) % params.R;
    let c = idx / (params.K * params.S * params.R);

    shuffled[idx] = weights[((k * params.C + c) * params.R + (params.R - 1u - r)) * params.S + (params.S - 1u - s)];
}
`
