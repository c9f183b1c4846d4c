package zksync

// ZkSyncABI is the part of the rollup contract ABI read by the node: the
// priority queue events
const ZkSyncABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "serialId", "type": "uint64"},
      {"indexed": false, "internalType": "enum Operations.OpType", "name": "opType", "type": "uint8"},
      {"indexed": false, "internalType": "bytes", "name": "pubData", "type": "bytes"},
      {"indexed": false, "internalType": "uint256", "name": "expirationBlock", "type": "uint256"}
    ],
    "name": "NewPriorityRequest",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "blockNumber", "type": "uint32"}
    ],
    "name": "BlockCommit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "blockNumber", "type": "uint32"}
    ],
    "name": "BlockVerification",
    "type": "event"
  }
]`
