//go:build windows

package webgpu

// workgroupSize is the number of threads in one token's worker group.
const workgroupSize = 256

// ropeShader rotates the leading rot_dim coordinates of every query and
// key head in place. One workgroup handles one token; the head×pair
// work items of the token are spread across the workgroup by strided
// assignment. gptj selects the interleaved pairing, otherwise pairs are
// taken from the contiguous halves.
const ropeShader = `
@group(0) @binding(0) var<storage, read> positions: array<i32>;
@group(0) @binding(1) var<storage, read_write> query: array<f32>;
@group(0) @binding(2) var<storage, read_write> key: array<f32>;
@group(0) @binding(3) var<storage, read> cache: array<f32>;

struct Params {
    num_tokens: u32,
    rot_dim: u32,
    head_size: u32,
    num_heads: u32,
    num_kv_heads: u32,
    query_stride: u32,
    key_stride: u32,
    gptj: u32,
}
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(workgroup_id) wid: vec3<u32>,
        @builtin(local_invocation_id) lid: vec3<u32>) {
    let token = wid.x;
    if (token >= params.num_tokens) {
        return;
    }

    let embed_dim = params.rot_dim / 2u;
    let row = u32(positions[token]) * params.rot_dim;

    let nq = params.num_heads * embed_dim;
    for (var k = lid.x; k < nq; k = k + 256u) {
        let head = k / embed_dim;
        let off = k % embed_dim;
        let base = token * params.query_stride + head * params.head_size;

        var xi = off;
        var yi = embed_dim + off;
        if (params.gptj != 0u) {
            xi = 2u * off;
            yi = 2u * off + 1u;
        }

        let c = cache[row + off];
        let s = cache[row + embed_dim + off];
        let x = query[base + xi];
        let y = query[base + yi];
        query[base + xi] = x * c - y * s;
        query[base + yi] = y * c + x * s;
    }

    let nk = params.num_kv_heads * embed_dim;
    for (var k = lid.x; k < nk; k = k + 256u) {
        let head = k / embed_dim;
        let off = k % embed_dim;
        let base = token * params.key_stride + head * params.head_size;

        var xi = off;
        var yi = embed_dim + off;
        if (params.gptj != 0u) {
            xi = 2u * off;
            yi = 2u * off + 1u;
        }

        let c = cache[row + off];
        let s = cache[row + embed_dim + off];
        let x = key[base + xi];
        let y = key[base + yi];
        key[base + xi] = x * c - y * s;
        key[base + yi] = y * c + x * s;
    }
}
`
